package websocket

import (
	"html"

	"github.com/adwski/ai-chat-relay/backend/model"
	"github.com/microcosm-cc/bluemonday"
)

// sanitizer strips markup from user supplied text before it enters the relay.
// Display names lose all markup, message text keeps safe formatting only.
// Image payloads are left intact.
type sanitizer struct {
	names    *bluemonday.Policy
	messages *bluemonday.Policy
}

func newSanitizer() *sanitizer {
	return &sanitizer{
		names:    bluemonday.StrictPolicy(),
		messages: bluemonday.UGCPolicy(),
	}
}

func (s *sanitizer) inbound(in model.Inbound) model.Inbound {
	if in.Name != "" {
		// StrictPolicy escapes entities, names are shown as plain text
		in.Name = html.UnescapeString(s.names.Sanitize(in.Name))
	}
	if in.Message != "" {
		in.Message = s.messages.Sanitize(in.Message)
	}
	return in
}
