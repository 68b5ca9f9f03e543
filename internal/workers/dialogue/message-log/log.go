// internal/workers/dialogue/message-log/log.go
package messagelog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/models"

	"github.com/google/uuid"
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS conversation_exchanges (
		id UUID PRIMARY KEY,
		conversation_id VARCHAR(100) NOT NULL,
		user_name VARCHAR(255),
		message_text TEXT NOT NULL,
		bot_response TEXT,
		kind VARCHAR(20) NOT NULL,
		intent VARCHAR(50),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_exchanges_conversation ON conversation_exchanges (conversation_id, created_at)`,
}

const (
	insertExchangeSQL = `INSERT INTO conversation_exchanges
		(id, conversation_id, user_name, message_text, bot_response, kind, intent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	statsSQL = `SELECT
		COUNT(*) FILTER (WHERE kind = 'message'),
		COUNT(*) FILTER (WHERE kind = 'command')
		FROM conversation_exchanges`
)

// Stats counts logged exchanges by kind.
type Stats struct {
	Messages int64 `json:"messages"`
	Commands int64 `json:"commands"`
}

// Log records routed exchanges.
type Log interface {
	SaveExchange(ctx context.Context, exchange *models.Exchange) error
	Stats(ctx context.Context) (*Stats, error)
}

type PostgresLog struct {
	db     *sql.DB
	now    func() time.Time
	logger logger.Logger
}

func NewPostgresLog(db *sql.DB, log logger.Logger) *PostgresLog {
	return &PostgresLog{
		db:     db,
		now:    time.Now,
		logger: log.With(map[string]interface{}{"component": "message-log"}),
	}
}

// SaveExchange fills in a missing id and timestamp before inserting.
func (l *PostgresLog) SaveExchange(ctx context.Context, exchange *models.Exchange) error {
	if exchange.ID == "" {
		exchange.ID = uuid.NewString()
	}
	if exchange.CreatedAt.IsZero() {
		exchange.CreatedAt = l.now().UTC()
	}
	if exchange.Kind == "" {
		exchange.Kind = models.ExchangeMessage
	}

	_, err := l.db.ExecContext(ctx, insertExchangeSQL,
		exchange.ID,
		exchange.ConversationID,
		nullString(exchange.UserName),
		exchange.Text,
		exchange.Reply,
		string(exchange.Kind),
		nullString(string(exchange.Intent)),
		exchange.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}

	l.logger.Debug("exchange logged", map[string]interface{}{
		"exchangeId":     exchange.ID,
		"conversationId": exchange.ConversationID,
		"kind":           exchange.Kind,
	})
	return nil
}

func (l *PostgresLog) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := l.db.QueryRowContext(ctx, statsSQL).Scan(&s.Messages, &s.Commands); err != nil {
		return nil, fmt.Errorf("query exchange stats: %w", err)
	}
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
