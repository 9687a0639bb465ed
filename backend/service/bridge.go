package service

import (
	"context"
	"errors"

	"github.com/adwski/ai-chat-relay/backend/model"
	"github.com/adwski/ai-chat-relay/backend/trigger"
)

var (
	ErrEmptyPrompt = errors.New("empty ai prompt")
)

// askAI runs the second phase of a triggered message; the user message has
// already been echoed to the room. A reply goes to the whole room, any
// failure produces a system notice for the requester only.
func (svc *Service) askAI(ctx context.Context, id model.ConnID, text string) {
	logger := svc.logger.With().Str("connID", string(id)).Logger()

	reply, err := svc.callAI(ctx, trigger.Prompt(text))

	svc.mx.Lock()
	defer svc.mx.Unlock()

	if err != nil {
		delivered := svc.notify(ctx, model.NewMessageEvent(model.ChatMessage{
			Username:  model.SenderSystem,
			Message:   model.AIUnavailableText,
			Timestamp: svc.now(),
		}), id)
		logger.Warn().Err(err).
			Bool("delivered", delivered).
			Msg("ai request failed")
		return
	}

	sent := svc.broadcast(ctx, model.NewMessageEvent(model.ChatMessage{
		Username:  model.SenderAI,
		Message:   reply,
		Timestamp: svc.now(),
	}))
	logger.Info().
		Str("reply", reply).
		Int("recipients", sent).
		Msg("ai replied")
}

// callAI asks the responder within the ai timeout. The call outlives the
// requester's connection so the room still gets the reply if they leave.
func (svc *Service) callAI(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	aiCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), svc.aiTimeout)
	defer cancel()

	reply, err := svc.ai.Ask(aiCtx, prompt)
	if err != nil {
		return "", err
	}
	// never deliver a reply that arrived after the deadline
	if err = aiCtx.Err(); err != nil {
		return "", err
	}
	return reply, nil
}
