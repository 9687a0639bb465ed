package service

import (
	"context"
	"errors"

	"github.com/adwski/ai-chat-relay/backend/model"
)

// Connect wires a freshly established connection. It stays anonymous until Join.
func (svc *Service) Connect(_ context.Context, id model.ConnID, wire model.Wire) error {
	if err := svc.sw.Connect(id, wire); err != nil {
		return errors.Join(ErrConnect, err)
	}
	svc.logger.Debug().
		Str("connID", string(id)).
		Msg("connection established")
	return nil
}

// Join registers the display name, announces the newcomer to everyone else
// and then refreshes the membership list of the whole room, joiner included.
// Joining again overwrites the previous name. A join that races with
// Disconnect of the same connection is rejected.
func (svc *Service) Join(ctx context.Context, id model.ConnID, name string) error {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	if !svc.sw.Connected(id) {
		return ErrNotConnected
	}
	replaced := svc.registry.Register(id, name)
	svc.broadcast(ctx, model.NewJoinedEvent(name), id)
	svc.broadcast(ctx, model.NewUserListEvent(svc.registry.ListNames()))

	svc.logger.Info().
		Str("connID", string(id)).
		Str("name", name).
		Bool("rejoin", replaced).
		Msg("user joined")
	return nil
}

// Disconnect unwires the connection. Presence events are emitted only if
// the connection had joined; otherwise it is a silent no-op.
func (svc *Service) Disconnect(ctx context.Context, id model.ConnID) {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	svc.sw.Disconnect(id)
	name, ok := svc.registry.Unregister(id)
	if !ok {
		svc.logger.Debug().
			Str("connID", string(id)).
			Msg("anonymous connection closed")
		return
	}
	svc.broadcast(ctx, model.NewLeftEvent(name))
	svc.broadcast(ctx, model.NewUserListEvent(svc.registry.ListNames()))

	svc.logger.Info().
		Str("connID", string(id)).
		Str("name", name).
		Msg("user left")
}
