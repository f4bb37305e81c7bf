package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shikkha/messaging/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// GetByIDs returns the subset of the given users that exist.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.DirectMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DirectMessage, error)
	// ListConversation returns every message between the two users, in
	// either direction, ascending by creation time.
	ListConversation(ctx context.Context, userA, userB uuid.UUID) ([]domain.DirectMessage, error)
	// ListInbox returns the latest message per counterpart of userID,
	// newest conversation first, with counterpart display attributes.
	ListInbox(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	// CountUnread counts messages received by userID per counterpart
	// after that counterpart's read marker.
	CountUnread(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error)
	GetReadMarker(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.ReadMarker, error)
	// UpsertReadMarker advances the marker; it never moves backward.
	UpsertReadMarker(ctx context.Context, userID, otherUserID uuid.UUID, readAt time.Time) error
}

type GroupRepository interface {
	// Create inserts the group and its initial member set atomically.
	Create(ctx context.Context, group *domain.Group, members []domain.GroupMember) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Group, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	AddMembers(ctx context.Context, groupID uuid.UUID, members []domain.GroupMember) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	GetMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMember, error)
	CountAdmins(ctx context.Context, groupID uuid.UUID) (int, error)
	CreateMessage(ctx context.Context, msg *domain.GroupMessage) error
	// ListMessages returns the group's messages in append order.
	ListMessages(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMessage, error)
	// CountUnreadByUser counts messages per group posted by others
	// after the user's group read marker.
	CountUnreadByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error)
	UpsertReadMarker(ctx context.Context, groupID, userID uuid.UUID, readAt time.Time) error
}
