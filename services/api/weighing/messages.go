package weighing

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
	"github.com/tbs-timbangan/weighbridge/services/api/session"
)

// MessageStore persists notice board messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, limit int) ([]models.Message, error)
}

// MessageBoard lets operators and admins leave notices for each other.
type MessageBoard struct {
	store  MessageStore
	logger *zap.Logger
}

// NewMessageBoard creates a MessageBoard.
func NewMessageBoard(store MessageStore, logger *zap.Logger) *MessageBoard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageBoard{store: store, logger: logger}
}

// senderRole is the station name for operators and the role otherwise.
func senderRole(sess session.Session) string {
	if sess.Role == session.RoleOperator {
		return sess.StationID
	}
	return string(sess.Role)
}

// Post stores a message signed with the session's role.
func (b *MessageBoard) Post(ctx context.Context, sess session.Session, text string) (*models.Message, error) {
	if !sess.CanWrite() {
		return nil, ErrForbidden
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ValidationError{Err: ErrMessageRequired}
	}

	msg := &models.Message{Text: text, SenderRole: senderRole(sess)}
	if err := b.store.CreateMessage(ctx, msg); err != nil {
		return nil, &PersistenceError{Op: "create message", Err: err}
	}
	b.logger.Info("message posted", zap.Int64("message_id", msg.ID), zap.String("sender", msg.SenderRole))
	return msg, nil
}

// List returns the newest messages first.
func (b *MessageBoard) List(ctx context.Context, limit int) ([]models.Message, error) {
	msgs, err := b.store.ListMessages(ctx, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list messages", Err: err}
	}
	return msgs, nil
}
