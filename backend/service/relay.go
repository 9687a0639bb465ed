package service

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/adwski/ai-chat-relay/backend/model"
	"github.com/adwski/ai-chat-relay/backend/trigger"
	"github.com/gabriel-vasile/mimetype"
)

// enough base64 to cover mimetype's default sniffing window
const imageSniffLen = 4096

// Message relays a chat message from a joined connection to the whole room.
// Messages containing the trigger token are then handed to the AI bridge,
// which blocks the caller until the responder answers or times out.
func (svc *Service) Message(ctx context.Context, id model.ConnID, in model.Inbound) error {
	svc.mx.Lock()
	// stamped under the lock so timestamps follow broadcast order
	ts := svc.now()
	name, ok := svc.registry.Name(id)
	if !ok {
		svc.mx.Unlock()
		return ErrNotJoined
	}
	msg := model.ChatMessage{
		Username:  name,
		Message:   in.Message,
		Image:     in.Image,
		Timestamp: ts,
	}
	sent := svc.broadcast(ctx, model.NewMessageEvent(msg))
	svc.mx.Unlock()

	logger := svc.logger.With().
		Str("connID", string(id)).
		Str("name", name).
		Int("recipients", sent).
		Logger()
	if in.Image != "" {
		logger.Info().
			Str("imageType", imageType(in.Image)).
			Str("caption", in.Message).
			Msg("image relayed")
	} else {
		logger.Info().Str("text", in.Message).Msg("message relayed")
	}

	if !trigger.Contains(in.Message) {
		return nil
	}
	svc.askAI(ctx, id, in.Message)
	return nil
}

// imageType sniffs the MIME type of a data URL or bare base64 payload.
func imageType(payload string) string {
	if _, data, ok := strings.Cut(payload, ","); ok && strings.HasPrefix(payload, "data:") {
		payload = data
	}
	payload = payload[:min(len(payload), imageSniffLen)]
	payload = payload[:len(payload)-len(payload)%4]
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "unknown"
	}
	return mimetype.Detect(b).String()
}
