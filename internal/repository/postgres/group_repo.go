package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shikkha/messaging/internal/domain"
)

type GroupRepo struct {
	pool *pgxpool.Pool
}

func NewGroupRepo(pool *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

func (r *GroupRepo) Create(ctx context.Context, group *domain.Group, members []domain.GroupMember) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO groups (id, name, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.Exec(ctx, query,
		group.ID, group.Name, group.CreatedBy, group.CreatedAt, group.UpdatedAt,
	); err != nil {
		return err
	}

	for _, m := range members {
		if _, err := tx.Exec(ctx,
			`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
			m.GroupID, m.UserID, m.Role, m.JoinedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *GroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	query := `SELECT id, name, created_by, created_at, updated_at FROM groups WHERE id = $1`
	var g domain.Group
	err := r.pool.QueryRow(ctx, query, id).Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &g, err
}

func (r *GroupRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Group, error) {
	query := `
		SELECT g.id, g.name, g.created_by, g.created_at, g.updated_at
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1
		ORDER BY g.updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *GroupRepo) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE groups SET updated_at = $1 WHERE id = $2`, at, id)
	return err
}

func (r *GroupRepo) AddMembers(ctx context.Context, groupID uuid.UUID, members []domain.GroupMember) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, m := range members {
		if _, err := tx.Exec(ctx,
			`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
			groupID, m.UserID, m.Role, m.JoinedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	return err
}

func (r *GroupRepo) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error) {
	query := `
		SELECT group_id, user_id, role, joined_at
		FROM group_members
		WHERE group_id = $1 AND user_id = $2`
	var m domain.GroupMember
	err := r.pool.QueryRow(ctx, query, groupID, userID).Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &m, err
}

func (r *GroupRepo) ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMember, error) {
	query := `
		SELECT gm.group_id, gm.user_id, gm.role, gm.joined_at, u.username, u.display_name
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at, gm.user_id`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.GroupMember
	for rows.Next() {
		var m domain.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt, &m.Username, &m.DisplayName); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *GroupRepo) CountAdmins(ctx context.Context, groupID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM group_members WHERE group_id = $1 AND role = 'admin'`, groupID,
	).Scan(&count)
	return count, err
}

func (r *GroupRepo) CreateMessage(ctx context.Context, msg *domain.GroupMessage) error {
	query := `
		INSERT INTO group_messages (id, group_id, sender_id, body, ciphertext, nonce, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.GroupID, msg.SenderID, msg.Text, msg.Ciphertext, msg.Nonce, msg.CreatedAt,
	)
	return err
}

func (r *GroupRepo) ListMessages(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMessage, error) {
	query := `
		SELECT m.id, m.group_id, m.sender_id, m.body, m.ciphertext, m.nonce, m.created_at,
			u.username, u.display_name
		FROM group_messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.group_id = $1
		ORDER BY m.created_at, m.id`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.GroupMessage
	for rows.Next() {
		var msg domain.GroupMessage
		if err := rows.Scan(
			&msg.ID, &msg.GroupID, &msg.SenderID, &msg.Text, &msg.Ciphertext, &msg.Nonce,
			&msg.CreatedAt, &msg.SenderUsername, &msg.SenderDisplayName,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *GroupRepo) CountUnreadByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	query := `
		SELECT m.group_id, COUNT(*)
		FROM group_messages m
		JOIN group_members gm ON gm.group_id = m.group_id AND gm.user_id = $1
		LEFT JOIN group_read_markers rm ON rm.group_id = m.group_id AND rm.user_id = $1
		WHERE m.sender_id <> $1
			AND (rm.last_read_at IS NULL OR m.created_at > rm.last_read_at)
		GROUP BY m.group_id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var groupID uuid.UUID
		var count int
		if err := rows.Scan(&groupID, &count); err != nil {
			return nil, err
		}
		counts[groupID] = count
	}
	return counts, rows.Err()
}

func (r *GroupRepo) UpsertReadMarker(ctx context.Context, groupID, userID uuid.UUID, readAt time.Time) error {
	query := `
		INSERT INTO group_read_markers (group_id, user_id, last_read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id)
		DO UPDATE SET last_read_at = GREATEST(group_read_markers.last_read_at, EXCLUDED.last_read_at)`
	_, err := r.pool.Exec(ctx, query, groupID, userID, readAt)
	return err
}
