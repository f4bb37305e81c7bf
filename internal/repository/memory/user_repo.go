package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shikkha/messaging/internal/domain"
	"github.com/shikkha/messaging/internal/repository"
)

type UserRepo struct {
	db *DB
}

var _ repository.UserRepository = (*UserRepo)(nil)

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.users[user.ID] = *user
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if u, ok := r.db.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var users []domain.User
	for _, id := range ids {
		if u, ok := r.db.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}
