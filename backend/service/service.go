package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/adwski/ai-chat-relay/backend/model"
	"github.com/rs/zerolog"
)

const (
	defaultAITimeout = 30 * time.Second
)

var (
	ErrConnect      = errors.New("unable to connect")
	ErrNotConnected = errors.New("connection is not established")
	ErrNotJoined    = errors.New("connection has not joined the chat")
)

type (
	Registry interface {
		Register(id model.ConnID, name string) bool
		Unregister(id model.ConnID) (string, bool)
		Name(id model.ConnID) (string, bool)
		ListNames() []string
		Members(except ...model.ConnID) []model.ConnID
	}

	Switch interface {
		Connect(id model.ConnID, wire model.Wire) error
		Connected(id model.ConnID) bool
		Disconnect(id model.ConnID)
		Forward(ctx context.Context, ev model.Event, dsts ...model.ConnID) int
	}

	// Service is the relay core. A single mutex covers registry mutation
	// together with the fan-out of the resulting events, so every recipient
	// observes broadcasts in the order the service issued them. Fan-out only
	// enqueues: a connection that cannot keep up is evicted by the switch.
	Service struct {
		mx        *sync.Mutex
		registry  Registry
		sw        Switch
		ai        Responder
		aiTimeout time.Duration
		now       func() time.Time
		logger    zerolog.Logger
	}

	Config struct {
		Registry  Registry
		Switch    Switch
		Responder Responder
		Logger    *zerolog.Logger
		AITimeout time.Duration
	}
)

func NewService(cfg Config) *Service {
	aiTimeout := cfg.AITimeout
	if aiTimeout <= 0 {
		aiTimeout = defaultAITimeout
	}
	return &Service{
		mx:        &sync.Mutex{},
		registry:  cfg.Registry,
		sw:        cfg.Switch,
		ai:        cfg.Responder,
		aiTimeout: aiTimeout,
		now:       time.Now,
		logger:    cfg.Logger.With().Str("component", "relay").Logger(),
	}
}

// ListNames returns the current membership snapshot.
func (svc *Service) ListNames() []string {
	return svc.registry.ListNames()
}

// broadcast sends ev to every joined connection except the given ones.
// Must be called with svc.mx held.
func (svc *Service) broadcast(ctx context.Context, ev model.Event, except ...model.ConnID) int {
	// a sender that leaves mid fan-out must not cut delivery short for the others
	return svc.sw.Forward(context.WithoutCancel(ctx), ev, svc.registry.Members(except...)...)
}

// notify sends ev to a single connection. Must be called with svc.mx held.
func (svc *Service) notify(ctx context.Context, ev model.Event, dst model.ConnID) bool {
	return svc.sw.Forward(context.WithoutCancel(ctx), ev, dst) == 1
}
