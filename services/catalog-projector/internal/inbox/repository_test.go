package inbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/catalogbus/libs/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	sql  string
	args []any
	tag  pgconn.CommandTag
	err  error
}

func (e *fakeExec) Executor(context.Context) db.Executor { return e }

func (e *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.sql, e.args = sql, args
	return e.tag, e.err
}

func (e *fakeExec) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (e *fakeExec) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func TestRecordFirstDelivery(t *testing.T) {
	exec := &fakeExec{tag: pgconn.NewCommandTag("INSERT 0 1")}

	ok, err := NewRepository(exec).Record(context.Background(), "evt-1", "client.created")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, exec.sql, "ON CONFLICT (event_id) DO NOTHING")
	assert.Equal(t, []any{"evt-1", "client.created"}, exec.args)
}

func TestRecordDuplicate(t *testing.T) {
	exec := &fakeExec{tag: pgconn.NewCommandTag("INSERT 0 0")}

	ok, err := NewRepository(exec).Record(context.Background(), "evt-1", "client.created")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordError(t *testing.T) {
	exec := &fakeExec{err: errors.New("connection reset")}

	_, err := NewRepository(exec).Record(context.Background(), "evt-1", "client.created")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "evt-1")
}

func TestPrune(t *testing.T) {
	exec := &fakeExec{tag: pgconn.NewCommandTag("DELETE 4")}

	n, err := NewRepository(exec).Prune(context.Background(), time.Hour)

	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, []any{float64(3600)}, exec.args)
}
