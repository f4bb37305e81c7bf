package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shikkha/messaging/internal/domain"
	"github.com/shikkha/messaging/internal/repository"
)

type MessageRepo struct {
	db *DB
}

var _ repository.MessageRepository = (*MessageRepo)(nil)

func NewMessageRepo(db *DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.DirectMessage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.messages = append(r.db.messages, *msg)
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DirectMessage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, m := range r.db.messages {
		if m.ID == id {
			r.joinSender(&m)
			return &m, nil
		}
	}
	return nil, nil
}

func (r *MessageRepo) ListConversation(ctx context.Context, userA, userB uuid.UUID) ([]domain.DirectMessage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var messages []domain.DirectMessage
	for _, m := range r.db.messages {
		if (m.SenderID == userA && m.RecipientID == userB) ||
			(m.SenderID == userB && m.RecipientID == userA) {
			r.joinSender(&m)
			messages = append(messages, m)
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

func (r *MessageRepo) ListInbox(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	latest := make(map[uuid.UUID]domain.DirectMessage)
	for _, m := range r.db.messages {
		var other uuid.UUID
		switch userID {
		case m.SenderID:
			other = m.RecipientID
		case m.RecipientID:
			other = m.SenderID
		default:
			continue
		}
		if prev, ok := latest[other]; !ok || !m.CreatedAt.Before(prev.CreatedAt) {
			latest[other] = m
		}
	}

	var convs []domain.Conversation
	for other, m := range latest {
		conv := domain.Conversation{OtherUserID: other, LastMessage: m}
		if u, ok := r.db.users[other]; ok {
			conv.OtherUserUsername = u.Username
			conv.OtherUserDisplayName = u.DisplayName
		}
		convs = append(convs, conv)
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].LastMessage.CreatedAt.After(convs[j].LastMessage.CreatedAt)
	})
	return convs, nil
}

func (r *MessageRepo) CountUnread(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	counts := make(map[uuid.UUID]int)
	for _, m := range r.db.messages {
		if m.RecipientID != userID {
			continue
		}
		readAt, ok := r.db.readMarkers[pairKey{userID, m.SenderID}]
		if !ok || m.CreatedAt.After(readAt) {
			counts[m.SenderID]++
		}
	}
	return counts, nil
}

func (r *MessageRepo) GetReadMarker(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.ReadMarker, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if at, ok := r.db.readMarkers[pairKey{userID, otherUserID}]; ok {
		return &domain.ReadMarker{UserID: userID, OtherUserID: otherUserID, LastReadAt: at}, nil
	}
	return nil, nil
}

func (r *MessageRepo) UpsertReadMarker(ctx context.Context, userID, otherUserID uuid.UUID, readAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := pairKey{userID, otherUserID}
	if prev, ok := r.db.readMarkers[key]; ok && prev.After(readAt) {
		return nil
	}
	r.db.readMarkers[key] = readAt
	return nil
}

func (r *MessageRepo) joinSender(msg *domain.DirectMessage) {
	if u, ok := r.db.users[msg.SenderID]; ok {
		msg.SenderUsername = u.Username
		msg.SenderDisplayName = u.DisplayName
	}
}
