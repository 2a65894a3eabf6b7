package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

type EventRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewEventRepository(db *sql.DB, dialect Dialect) *EventRepository {
	return &EventRepository{db: db, dialect: dialect}
}

func (r *EventRepository) RecordSessionEvent(ctx context.Context, event domain.SessionEvent) error {
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(`
INSERT INTO session_events (id, event_type, session_id, document_id, filename, chunks, provider, success, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`), uuid.NewString(), string(event.Type), event.SessionID, nullableString(event.DocumentID), nullableString(event.Filename),
		event.Chunks, nullableString(string(event.Provider)), event.Success, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("record session event: %w", err)
	}
	return nil
}
