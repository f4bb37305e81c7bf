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

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.DirectMessage) error {
	query := `
		INSERT INTO direct_messages (id, sender_id, recipient_id, body, ciphertext, nonce, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.SenderID, msg.RecipientID, msg.Text, msg.Ciphertext, msg.Nonce, msg.CreatedAt,
	)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DirectMessage, error) {
	query := `
		SELECT m.id, m.sender_id, m.recipient_id, m.body, m.ciphertext, m.nonce, m.created_at,
			u.username, u.display_name
		FROM direct_messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1`
	var msg domain.DirectMessage
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Text, &msg.Ciphertext, &msg.Nonce,
		&msg.CreatedAt, &msg.SenderUsername, &msg.SenderDisplayName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &msg, err
}

func (r *MessageRepo) ListConversation(ctx context.Context, userA, userB uuid.UUID) ([]domain.DirectMessage, error) {
	query := `
		SELECT m.id, m.sender_id, m.recipient_id, m.body, m.ciphertext, m.nonce, m.created_at,
			u.username, u.display_name
		FROM direct_messages m
		JOIN users u ON m.sender_id = u.id
		WHERE (m.sender_id = $1 AND m.recipient_id = $2)
			OR (m.sender_id = $2 AND m.recipient_id = $1)
		ORDER BY m.created_at, m.id`

	rows, err := r.pool.Query(ctx, query, userA, userB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.DirectMessage
	for rows.Next() {
		var msg domain.DirectMessage
		if err := rows.Scan(
			&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Text, &msg.Ciphertext, &msg.Nonce,
			&msg.CreatedAt, &msg.SenderUsername, &msg.SenderDisplayName,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepo) ListInbox(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	// Latest message per counterpart, newest conversation first.
	query := `
		SELECT * FROM (
			SELECT DISTINCT ON (other_id)
				t.other_id, u.username, u.display_name,
				t.id, t.sender_id, t.recipient_id, t.body, t.ciphertext, t.nonce, t.created_at
			FROM (
				SELECT m.*,
					CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS other_id
				FROM direct_messages m
				WHERE m.sender_id = $1 OR m.recipient_id = $1
			) t
			JOIN users u ON u.id = t.other_id
			ORDER BY t.other_id, t.created_at DESC, t.id DESC
		) latest
		ORDER BY latest.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(
			&conv.OtherUserID, &conv.OtherUserUsername, &conv.OtherUserDisplayName,
			&conv.LastMessage.ID, &conv.LastMessage.SenderID, &conv.LastMessage.RecipientID,
			&conv.LastMessage.Text, &conv.LastMessage.Ciphertext, &conv.LastMessage.Nonce,
			&conv.LastMessage.CreatedAt,
		); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (r *MessageRepo) CountUnread(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	query := `
		SELECT m.sender_id, COUNT(*)
		FROM direct_messages m
		LEFT JOIN read_markers rm ON rm.user_id = $1 AND rm.other_user_id = m.sender_id
		WHERE m.recipient_id = $1
			AND (rm.last_read_at IS NULL OR m.created_at > rm.last_read_at)
		GROUP BY m.sender_id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var sender uuid.UUID
		var count int
		if err := rows.Scan(&sender, &count); err != nil {
			return nil, err
		}
		counts[sender] = count
	}
	return counts, rows.Err()
}

func (r *MessageRepo) GetReadMarker(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.ReadMarker, error) {
	query := `
		SELECT user_id, other_user_id, last_read_at
		FROM read_markers
		WHERE user_id = $1 AND other_user_id = $2`
	var rm domain.ReadMarker
	err := r.pool.QueryRow(ctx, query, userID, otherUserID).Scan(&rm.UserID, &rm.OtherUserID, &rm.LastReadAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &rm, err
}

func (r *MessageRepo) UpsertReadMarker(ctx context.Context, userID, otherUserID uuid.UUID, readAt time.Time) error {
	// GREATEST keeps the marker monotonic under concurrent views.
	query := `
		INSERT INTO read_markers (user_id, other_user_id, last_read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, other_user_id)
		DO UPDATE SET last_read_at = GREATEST(read_markers.last_read_at, EXCLUDED.last_read_at)`
	_, err := r.pool.Exec(ctx, query, userID, otherUserID, readAt)
	return err
}
