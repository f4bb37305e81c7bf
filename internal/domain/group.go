package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	GroupRoleAdmin  = "admin"
	GroupRoleMember = "member"
)

// Group is addressed by id; Name is a display attribute only.
// Invariant: members ⊇ admins ⊇ {CreatedBy} at all times.
type Group struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type GroupMember struct {
	GroupID  uuid.UUID `json:"group_id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	// Joined fields
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// GroupMessage belongs exclusively to its group; append order is
// chronological order.
type GroupMessage struct {
	ID         uuid.UUID `json:"id"`
	GroupID    uuid.UUID `json:"group_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	Text       string    `json:"text"`
	Ciphertext []byte    `json:"-"`
	Nonce      []byte    `json:"-"`
	Unreadable bool      `json:"unreadable,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	// Joined fields
	SenderUsername    string `json:"sender_username,omitempty"`
	SenderDisplayName string `json:"sender_display_name,omitempty"`
}

// GroupReadMarker tracks per-user read progress in a group.
type GroupReadMarker struct {
	GroupID    uuid.UUID `json:"group_id"`
	UserID     uuid.UUID `json:"user_id"`
	LastReadAt time.Time `json:"last_read_at"`
}
