package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/catalogbus/libs/db"
)

type Executors interface {
	Executor(ctx context.Context) db.Executor
}

type Repository struct {
	exec Executors
}

func NewRepository(exec Executors) *Repository {
	return &Repository{exec: exec}
}

// Record claims eventID. It reports false when the event was already claimed,
// which inside a transaction means another delivery got there first.
func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	tag, err := r.exec.Executor(ctx).Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("inbox record %s: %w", eventID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Prune forgets event ids received before olderThan ago.
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.exec.Executor(ctx).Exec(ctx, `
		DELETE FROM inbox_events WHERE received_at < now() - make_interval(secs => $1)
	`, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("inbox prune: %w", err)
	}
	return tag.RowsAffected(), nil
}
