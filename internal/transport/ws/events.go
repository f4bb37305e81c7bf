package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shikkha/messaging/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeGroupSubscribe   = "group.subscribe"
	EventTypeGroupUnsubscribe = "group.unsubscribe"
	EventTypeTypingStart      = "typing.start"
	EventTypeTypingStop       = "typing.stop"
	EventTypePing             = "ping"
)

// Event types - Server → Client
const (
	EventTypeDirectMessage     = "message.direct"
	EventTypeGroupMessage      = "message.group"
	EventTypeGroupMembersAdded = "group.members_added"
	EventTypeTyping            = "typing"
	EventTypePresence          = "presence"
	EventTypePong              = "pong"
	EventTypeError             = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	GroupID   *uuid.UUID      `json:"group_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type GroupPayload struct {
	GroupID uuid.UUID `json:"group_id"`
}

// --- Server → Client payloads ---

type DirectMessagePayload struct {
	domain.DirectMessage
}

type GroupMessagePayload struct {
	domain.GroupMessage
}

type MembersAddedPayload struct {
	GroupID uuid.UUID   `json:"group_id"`
	UserIDs []uuid.UUID `json:"user_ids"`
}

type TypingPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

type PresencePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"` // "online" | "offline"
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, groupID *uuid.UUID, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		GroupID:   groupID,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
