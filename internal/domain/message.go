package domain

import (
	"time"

	"github.com/google/uuid"
)

// DirectMessage is immutable once created: no edit or delete.
// Text holds the plaintext; when at-rest encryption is enabled the
// repository persists Ciphertext+Nonce instead and Text stays empty in
// storage. Services always hand plaintext to callers.
type DirectMessage struct {
	ID          uuid.UUID `json:"id"`
	SenderID    uuid.UUID `json:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Text        string    `json:"text"`
	Ciphertext  []byte    `json:"-"`
	Nonce       []byte    `json:"-"`
	// Unreadable is set when the stored ciphertext fails authentication
	// on decrypt. The message is surfaced as a placeholder instead of
	// failing the whole fetch.
	Unreadable bool      `json:"unreadable,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	// Joined fields
	SenderUsername    string `json:"sender_username,omitempty"`
	SenderDisplayName string `json:"sender_display_name,omitempty"`
}

// Conversation is a read-time projection, never persisted: the latest
// exchange between the caller and one counterpart plus an unread count
// derived from the caller's read marker.
type Conversation struct {
	OtherUserID          uuid.UUID     `json:"other_user_id"`
	OtherUserUsername    string        `json:"other_username"`
	OtherUserDisplayName string        `json:"other_display_name"`
	LastMessage          DirectMessage `json:"last_message"`
	UnreadCount          int           `json:"unread_count"`
}

// ReadMarker records the last time a user viewed a conversation.
// It only ever moves forward.
type ReadMarker struct {
	UserID      uuid.UUID `json:"user_id"`
	OtherUserID uuid.UUID `json:"other_user_id"`
	LastReadAt  time.Time `json:"last_read_at"`
}
