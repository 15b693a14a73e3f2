package db

import (
	"context"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
)

// CreateMessage stores a notice and fills in its id and timestamp.
func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO weighbridge.messages (text, sender_role) VALUES ($1, $2) RETURNING id, created_at`,
		msg.Text, msg.SenderRole,
	).Scan(&msg.ID, &msg.CreatedAt)
}

// ListMessages returns the newest messages first.
func (s *Store) ListMessages(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
    SELECT id, text, sender_role, created_at
    FROM weighbridge.messages
    ORDER BY created_at DESC, id DESC
    LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.Text, &m.SenderRole, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
