package _switch

import (
	"context"
	"errors"
	"sync"

	"github.com/adwski/ai-chat-relay/backend/model"
	"github.com/rs/zerolog"
)

var (
	ErrAlreadyConnected = errors.New("endpoint is already connected")
)

// Switch holds outbound wires of all live connections, joined or not.
type Switch struct {
	logger zerolog.Logger
	mx     *sync.RWMutex
	fwd    map[model.ConnID]model.Wire
}

func NewSwitch(logger *zerolog.Logger) *Switch {
	return &Switch{
		logger: logger.With().Str("component", "switch").Logger(),
		mx:     &sync.RWMutex{},
		fwd:    make(map[model.ConnID]model.Wire),
	}
}

func (sw *Switch) Connect(endpoint model.ConnID, wire model.Wire) error {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	if _, ok := sw.fwd[endpoint]; ok {
		return ErrAlreadyConnected
	}
	sw.fwd[endpoint] = wire
	sw.logger.Debug().
		Str("endpoint", string(endpoint)).
		Msg("endpoint connected")
	return nil
}

func (sw *Switch) Connected(endpoint model.ConnID) bool {
	sw.mx.RLock()
	defer sw.mx.RUnlock()

	_, ok := sw.fwd[endpoint]
	return ok
}

// Disconnect is idempotent.
func (sw *Switch) Disconnect(endpoint model.ConnID) {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	if _, ok := sw.fwd[endpoint]; ok {
		delete(sw.fwd, endpoint)
		sw.logger.Debug().
			Str("endpoint", string(endpoint)).
			Msg("endpoint disconnected")
	}
}

// Forward delivers ev to every given endpoint that is still connected and
// returns the number of successful deliveries. Forward never waits on a
// receiver: an endpoint whose wire is full is evicted and its Gone channel
// closed, so the connection owner can tear the session down.
func (sw *Switch) Forward(ctx context.Context, ev model.Event, dsts ...model.ConnID) int {
	var (
		sent    int
		stalled map[model.ConnID]model.Wire
		logger  = sw.logger.With().Str("type", ev.Type).Logger()
	)

	sw.mx.RLock()
	for _, dst := range dsts {
		if ctx.Err() != nil {
			break
		}
		wire, ok := sw.fwd[dst]
		if !ok {
			logger.Debug().Str("dst", string(dst)).Msg("cannot forward, dst not found")
			continue
		}
		if sw.send(ev, dst, wire.TX, &logger) {
			sent++
		} else {
			if stalled == nil {
				stalled = make(map[model.ConnID]model.Wire)
			}
			stalled[dst] = wire
		}
	}
	sw.mx.RUnlock()

	if len(stalled) > 0 {
		sw.evict(stalled)
	}
	return sent
}

func (sw *Switch) send(
	ev model.Event,
	dst model.ConnID,
	tx chan<- model.Event,
	logger *zerolog.Logger,
) bool {
	select {
	case tx <- ev:
		logger.Trace().Str("dst", string(dst)).Msg("event is forwarded")
		return true
	default:
		logger.Error().Str("dst", string(dst)).Msg("slow endpoint, wire is full")
		return false
	}
}

func (sw *Switch) evict(stalled map[model.ConnID]model.Wire) {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	for endpoint, wire := range stalled {
		if cur, ok := sw.fwd[endpoint]; !ok || cur.TX != wire.TX {
			// already evicted or reconnected
			continue
		}
		delete(sw.fwd, endpoint)
		close(wire.Gone)
		sw.logger.Warn().
			Str("endpoint", string(endpoint)).
			Msg("slow endpoint evicted")
	}
}
