package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	otelx "github.com/md-rashed-zaman/catalogbus/libs/otel"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/storage"
)

// maxErrorLen caps last_error so a verbose broker error cannot bloat the row.
const maxErrorLen = 512

// Repository is the outbox_events table. It is the only writer of record status.
type Repository struct {
	db storage.Executors
}

func NewRepository(exec storage.Executors) *Repository {
	return &Repository{db: exec}
}

// Stage inserts evt as pending. It must run on the context of the transaction
// that wrote the entity, so both commit or neither does.
func (r *Repository) Stage(ctx context.Context, evt model.ChangeEvent) (model.OutboxRecord, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return model.OutboxRecord{}, model.Persistence("encode event", err)
	}
	tc := otelx.Capture(ctx)

	rec := model.OutboxRecord{
		Event:       evt,
		Status:      model.OutboxPending,
		Traceparent: tc.Traceparent,
		Tracestate:  tc.Tracestate,
	}
	err = r.db.Executor(ctx).QueryRow(ctx, `
		INSERT INTO outbox_events (event_id, entity_kind, entity_id, operation, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, evt.EventID, string(evt.EntityKind), evt.EntityID, string(evt.Operation), payload, tc.Traceparent, tc.Tracestate,
	).Scan(&rec.RecordID, &rec.CreatedAt)
	if err != nil {
		return model.OutboxRecord{}, model.Persistence("stage event", err)
	}
	return rec, nil
}

// Pending returns up to limit pending records, oldest first. No rows are
// locked: several relays may read the same records and publish them twice,
// which consumers absorb by event id.
func (r *Repository) Pending(ctx context.Context, limit int) ([]model.OutboxRecord, error) {
	rows, err := r.db.Executor(ctx).Query(ctx, `
		SELECT id, payload, status, attempts, last_error, traceparent, tracestate, created_at, published_at
		FROM outbox_events
		WHERE status = 'pending'
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, model.Persistence("fetch pending", err)
	}
	defer rows.Close()

	var records []model.OutboxRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, model.Persistence("scan pending", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Persistence("fetch pending", err)
	}
	return records, nil
}

// MarkPublished is idempotent: an already published or purged record is left alone.
func (r *Repository) MarkPublished(ctx context.Context, recordID int64) error {
	_, err := r.db.Executor(ctx).Exec(ctx, `
		UPDATE outbox_events
		SET status = 'published', published_at = now()
		WHERE id = $1 AND status = 'pending'
	`, recordID)
	if err != nil {
		return model.Persistence("mark published", err)
	}
	return nil
}

func (r *Repository) RecordFailure(ctx context.Context, recordID int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	_, err := r.db.Executor(ctx).Exec(ctx, `
		UPDATE outbox_events
		SET attempts = attempts + 1, last_error = $2
		WHERE id = $1 AND status = 'pending'
	`, recordID, msg)
	if err != nil {
		return model.Persistence("record failure", err)
	}
	return nil
}

// PurgePublished deletes records published more than olderThan ago. Pending
// records are never purged.
func (r *Repository) PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := r.db.Executor(ctx).Exec(ctx, `
		DELETE FROM outbox_events
		WHERE status = 'published' AND published_at < $1
	`, cutoff)
	if err != nil {
		return 0, model.Persistence("purge published", err)
	}
	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (model.OutboxRecord, error) {
	var (
		rec     model.OutboxRecord
		payload []byte
		status  string
	)
	if err := row.Scan(&rec.RecordID, &payload, &status, &rec.Attempts, &rec.LastError,
		&rec.Traceparent, &rec.Tracestate, &rec.CreatedAt, &rec.PublishedAt); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(payload, &rec.Event); err != nil {
		return rec, fmt.Errorf("decode outbox record %d: %w", rec.RecordID, err)
	}
	rec.Status = model.OutboxStatus(status)
	return rec, nil
}
