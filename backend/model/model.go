package model

import "time"

// ConnID is an opaque handle of a live websocket session.
type ConnID string

// Outbound event types.
const (
	EventTypeMessage    = "message"
	EventTypeUserJoined = "user_joined"
	EventTypeUserLeft   = "user_left"
	EventTypeUserList   = "user_list"
)

// Inbound event types.
const (
	InboundTypeJoin    = "join"
	InboundTypeMessage = "message"
)

// Fixed sender identities of server-generated messages.
const (
	SenderAI     = "AI assistant"
	SenderSystem = "system"

	AIUnavailableText = "AI assistant is temporarily unavailable."
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ChatMessage is used for user chat, AI replies and system notices alike.
type ChatMessage struct {
	Username  string    `json:"username"`
	Message   string    `json:"message,omitempty"`
	Image     string    `json:"image,omitempty"` // data URL
	Timestamp time.Time `json:"timestamp"`
}

type Presence struct {
	Name string `json:"name"`
}

type UserList struct {
	Names []string `json:"names"`
}

// Inbound is what clients send. Name is set for joins, Message/Image for messages.
type Inbound struct {
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message,omitempty"`
	Image   string `json:"image,omitempty"`
}

func NewMessageEvent(msg ChatMessage) Event {
	return Event{Type: EventTypeMessage, Payload: msg}
}

func NewJoinedEvent(name string) Event {
	return Event{Type: EventTypeUserJoined, Payload: Presence{Name: name}}
}

func NewLeftEvent(name string) Event {
	return Event{Type: EventTypeUserLeft, Payload: Presence{Name: name}}
}

func NewUserListEvent(names []string) Event {
	if names == nil {
		names = []string{}
	}
	return Event{Type: EventTypeUserList, Payload: UserList{Names: names}}
}

// Wire carries events of a single connection: RX is the inbound queue
// consumed in order, TX the outbound queue drained by the socket writer.
// Gone is closed when the relay drops a connection that stopped draining TX.
type Wire struct {
	RX   chan Inbound
	TX   chan Event
	Gone chan struct{}
}

func NewWire(size int) Wire {
	return Wire{
		RX:   make(chan Inbound, size),
		TX:   make(chan Event, size),
		Gone: make(chan struct{}),
	}
}
