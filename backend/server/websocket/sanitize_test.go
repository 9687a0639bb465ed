package websocket

import (
	"testing"

	"github.com/adwski/ai-chat-relay/backend/model"
	"github.com/stretchr/testify/assert"
)

func TestSanitizer_Inbound(t *testing.T) {
	s := newSanitizer()
	tests := []struct {
		name string
		in   model.Inbound
		want model.Inbound
	}{
		{
			name: "plain join",
			in:   model.Inbound{Type: model.InboundTypeJoin, Name: "alice"},
			want: model.Inbound{Type: model.InboundTypeJoin, Name: "alice"},
		},
		{
			name: "markup in name",
			in:   model.Inbound{Type: model.InboundTypeJoin, Name: "<b>alice</b><script>alert(1)</script>"},
			want: model.Inbound{Type: model.InboundTypeJoin, Name: "alice"},
		},
		{
			name: "script in message",
			in:   model.Inbound{Type: model.InboundTypeMessage, Message: "@ai hi<script>alert(1)</script>"},
			want: model.Inbound{Type: model.InboundTypeMessage, Message: "@ai hi"},
		},
		{
			name: "safe formatting kept",
			in:   model.Inbound{Type: model.InboundTypeMessage, Message: "<b>bold</b>"},
			want: model.Inbound{Type: model.InboundTypeMessage, Message: "<b>bold</b>"},
		},
		{
			name: "image untouched",
			in:   model.Inbound{Type: model.InboundTypeMessage, Image: "data:image/png;base64,iVBORw0KGgo="},
			want: model.Inbound{Type: model.InboundTypeMessage, Image: "data:image/png;base64,iVBORw0KGgo="},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.inbound(tt.in))
		})
	}
}
