package relay

import "encoding/json"

// Event names on the relay surface. Inbound and outbound share the same
// envelope shape.
const (
	EventJoinChannel    = "join-channel"
	EventLeaveChannel   = "leave-channel"
	EventChatMessage    = "chat-message"
	EventTyping         = "typing"
	EventEditMessage    = "edit-message"
	EventDeleteMessage  = "delete-message"
	EventSignal         = "signal"
	EventPresenceUpdate = "presence-update"
	EventError          = "error"
)

// Signal subtypes carried inside signal events.
const (
	SignalOffer        = "offer"
	SignalAnswer       = "answer"
	SignalICECandidate = "ice-candidate"
	SignalCallRequest  = "call-request"
	SignalCallAccept   = "call-accept"
	SignalCallReject   = "call-reject"
	SignalCallEnd      = "call-end"
)

// Envelope is the wire frame for every relay event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type joinChannelPayload struct {
	RoomID string `json:"room_id"`
}

type leaveChannelPayload struct {
	RoomID string `json:"room_id"`
}

type chatMessagePayload struct {
	RoomID  string           `json:"room_id"`
	Body    string           `json:"body"`
	Kind    string           `json:"kind,omitempty"`
	ReplyTo *replyRefPayload `json:"reply_to,omitempty"`
}

type replyRefPayload struct {
	MessageID string `json:"message_id"`
	Snippet   string `json:"snippet,omitempty"`
	SenderID  string `json:"sender_id,omitempty"`
}

type typingPayload struct {
	RoomID   string `json:"room_id"`
	IsTyping bool   `json:"is_typing"`
}

type editMessagePayload struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
	Body      string `json:"body"`
}

type deleteMessagePayload struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

type signalPayload struct {
	RoomID      string          `json:"room_id"`
	RecipientID string          `json:"recipient_id"`
	SignalType  string          `json:"signal_type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

type signalOut struct {
	RoomID     string          `json:"room_id"`
	SenderID   string          `json:"sender_id"`
	SignalType string          `json:"signal_type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

type presencePayload struct {
	RoomID       string   `json:"room_id"`
	UserID       string   `json:"user_id"`
	Action       string   `json:"action"` // joined, left
	Participants []string `json:"participants"`
}

type typingOut struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
