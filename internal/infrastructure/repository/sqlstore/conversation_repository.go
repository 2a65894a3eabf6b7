package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

type ConversationRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewConversationRepository(db *sql.DB, dialect Dialect) *ConversationRepository {
	return &ConversationRepository{db: db, dialect: dialect}
}

func (r *ConversationRepository) AppendTurn(ctx context.Context, sessionID string, turn domain.ConversationTurn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	sources := turn.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	metadataJSON, err := json.Marshal(turn.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, r.dialect.rebind(`
INSERT INTO conversation_turns (id, session_id, question, answer, sources, metadata, success, error_message, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`), uuid.NewString(), sessionID, turn.Question, turn.Answer, string(sourcesJSON), string(metadataJSON),
		turn.Success, nullableString(turn.Error), turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// ListTurns returns the latest limit turns in chronological order.
func (r *ConversationRepository) ListTurns(ctx context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(`
SELECT question, answer, sources, metadata, success, COALESCE(error_message, ''), created_at
FROM conversation_turns
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2
`), sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ConversationTurn, 0, limit)
	for rows.Next() {
		var turn domain.ConversationTurn
		var sourcesRaw, metaRaw []byte
		if err := rows.Scan(&turn.Question, &turn.Answer, &sourcesRaw, &metaRaw, &turn.Success, &turn.Error, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if err := json.Unmarshal(sourcesRaw, &turn.Sources); err != nil {
			return nil, fmt.Errorf("decode sources: %w", err)
		}
		if err := json.Unmarshal(metaRaw, &turn.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		out = append(out, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	// Returned in descending order from SQL; reverse to keep chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
