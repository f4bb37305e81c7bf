package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shikkha/messaging/internal/domain"
	"github.com/shikkha/messaging/internal/repository"
)

type GroupRepo struct {
	db *DB
}

var _ repository.GroupRepository = (*GroupRepo)(nil)

func NewGroupRepo(db *DB) *GroupRepo {
	return &GroupRepo{db: db}
}

func (r *GroupRepo) Create(ctx context.Context, group *domain.Group, members []domain.GroupMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.groups[group.ID] = *group
	r.db.groupMembers[group.ID] = append([]domain.GroupMember(nil), members...)
	return nil
}

func (r *GroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if g, ok := r.db.groups[id]; ok {
		return &g, nil
	}
	return nil, nil
}

func (r *GroupRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Group, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var groups []domain.Group
	for id, members := range r.db.groupMembers {
		for _, m := range members {
			if m.UserID == userID {
				groups = append(groups, r.db.groups[id])
				break
			}
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].UpdatedAt.After(groups[j].UpdatedAt)
	})
	return groups, nil
}

func (r *GroupRepo) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if g, ok := r.db.groups[id]; ok {
		g.UpdatedAt = at
		r.db.groups[id] = g
	}
	return nil
}

func (r *GroupRepo) AddMembers(ctx context.Context, groupID uuid.UUID, members []domain.GroupMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.groupMembers[groupID] = append(r.db.groupMembers[groupID], members...)
	return nil
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	members := r.db.groupMembers[groupID]
	for i, m := range members {
		if m.UserID == userID {
			r.db.groupMembers[groupID] = append(members[:i:i], members[i+1:]...)
			break
		}
	}
	return nil
}

func (r *GroupRepo) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, m := range r.db.groupMembers[groupID] {
		if m.UserID == userID {
			return &m, nil
		}
	}
	return nil, nil
}

func (r *GroupRepo) ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMember, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	members := append([]domain.GroupMember(nil), r.db.groupMembers[groupID]...)
	for i := range members {
		if u, ok := r.db.users[members[i].UserID]; ok {
			members[i].Username = u.Username
			members[i].DisplayName = u.DisplayName
		}
	}
	return members, nil
}

func (r *GroupRepo) CountAdmins(ctx context.Context, groupID uuid.UUID) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	count := 0
	for _, m := range r.db.groupMembers[groupID] {
		if m.Role == domain.GroupRoleAdmin {
			count++
		}
	}
	return count, nil
}

func (r *GroupRepo) CreateMessage(ctx context.Context, msg *domain.GroupMessage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m := *msg
	if u, ok := r.db.users[m.SenderID]; ok {
		m.SenderUsername = u.Username
		m.SenderDisplayName = u.DisplayName
	}
	r.db.groupMessages[msg.GroupID] = append(r.db.groupMessages[msg.GroupID], m)
	return nil
}

func (r *GroupRepo) ListMessages(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMessage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return append([]domain.GroupMessage(nil), r.db.groupMessages[groupID]...), nil
}

func (r *GroupRepo) CountUnreadByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	counts := make(map[uuid.UUID]int)
	for groupID, messages := range r.db.groupMessages {
		member := false
		for _, m := range r.db.groupMembers[groupID] {
			if m.UserID == userID {
				member = true
				break
			}
		}
		if !member {
			continue
		}
		readAt, marked := r.db.groupRead[pairKey{groupID, userID}]
		for _, m := range messages {
			if m.SenderID == userID {
				continue
			}
			if !marked || m.CreatedAt.After(readAt) {
				counts[groupID]++
			}
		}
	}
	return counts, nil
}

func (r *GroupRepo) UpsertReadMarker(ctx context.Context, groupID, userID uuid.UUID, readAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := pairKey{groupID, userID}
	if prev, ok := r.db.groupRead[key]; ok && prev.After(readAt) {
		return nil
	}
	r.db.groupRead[key] = readAt
	return nil
}
