package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/catalogbus/libs/db"
)

type Executors interface {
	Executor(ctx context.Context) db.Executor
}

// Row is the projected state of one entity.
type Row struct {
	EntityKind  string
	EntityID    string
	Nom         string
	Description string
	Deleted     bool
	EmittedAt   time.Time
}

type Repository struct {
	exec Executors
}

func NewRepository(exec Executors) *Repository {
	return &Repository{exec: exec}
}

// Upserts never resurrect a tombstone and never overwrite a newer state.
const (
	upsertSQL = `
		INSERT INTO catalog_projection (entity_kind, entity_id, nom, description, deleted, emitted_at)
		VALUES ($1, $2, $3, $4, false, $5)
		ON CONFLICT (entity_kind, entity_id) DO UPDATE
		SET nom = EXCLUDED.nom,
		    description = EXCLUDED.description,
		    emitted_at = EXCLUDED.emitted_at,
		    updated_at = now()
		WHERE NOT catalog_projection.deleted
		  AND catalog_projection.emitted_at <= EXCLUDED.emitted_at
	`
	tombstoneSQL = `
		INSERT INTO catalog_projection (entity_kind, entity_id, deleted, emitted_at)
		VALUES ($1, $2, true, $3)
		ON CONFLICT (entity_kind, entity_id) DO UPDATE
		SET deleted = true,
		    emitted_at = GREATEST(catalog_projection.emitted_at, EXCLUDED.emitted_at),
		    updated_at = now()
		WHERE NOT catalog_projection.deleted
	`
)

// Apply writes evt and reports whether the projection changed.
func (r *Repository) Apply(ctx context.Context, evt Event) (bool, error) {
	var (
		sql  string
		args []any
	)
	if evt.Operation == OpDeleted {
		sql, args = tombstoneSQL, []any{evt.EntityKind, evt.EntityID, evt.EmittedAt}
	} else {
		desc := ""
		if evt.Payload.Description != nil {
			desc = *evt.Payload.Description
		}
		sql, args = upsertSQL, []any{evt.EntityKind, evt.EntityID, *evt.Payload.Nom, desc, evt.EmittedAt}
	}
	tag, err := r.exec.Executor(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("apply %s %s: %w", evt.Type(), evt.EntityID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get returns the projected row, or ok=false when the entity was never seen.
func (r *Repository) Get(ctx context.Context, kind, id string) (Row, bool, error) {
	var row Row
	err := r.exec.Executor(ctx).QueryRow(ctx, `
		SELECT entity_kind, entity_id, nom, description, deleted, emitted_at
		FROM catalog_projection
		WHERE entity_kind = $1 AND entity_id = $2
	`, kind, id).Scan(&row.EntityKind, &row.EntityID, &row.Nom, &row.Description, &row.Deleted, &row.EmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, fmt.Errorf("get projection %s %s: %w", kind, id, err)
	}
	return row, true, nil
}
