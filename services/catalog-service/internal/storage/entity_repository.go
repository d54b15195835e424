package storage

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/catalogbus/libs/db"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
)

const (
	idColumn          = "id"
	nomColumn         = "nom"
	descriptionColumn = "description"
	createdAtColumn   = "created_at"
	updatedAtColumn   = "updated_at"
)

// returning is shared by every statement so rows scan the same way.
const returning = "RETURNING id::text, nom, description, created_at, updated_at"

var selectColumns = []string{"id::text", nomColumn, descriptionColumn, createdAtColumn, updatedAtColumn}

// Executors hands out the pool or the transaction carried by ctx. *db.Pool implements it.
type Executors interface {
	Executor(ctx context.Context) db.Executor
}

// EntityRepository is the CRUD store for one entity kind.
type EntityRepository struct {
	db      Executors
	kind    model.Kind
	builder sq.StatementBuilderType
}

func NewEntityRepository(exec Executors, kind model.Kind) *EntityRepository {
	return &EntityRepository{
		db:      exec,
		kind:    kind,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *EntityRepository) Kind() model.Kind { return r.kind }

func (r *EntityRepository) Create(ctx context.Context, nom, description string) (model.Entity, error) {
	if err := model.ValidateFields(nom); err != nil {
		return model.Entity{}, err
	}
	query, args, err := r.insertSQL(nom, description)
	if err != nil {
		return model.Entity{}, model.Persistence("build insert "+r.kind.String(), err)
	}
	e, err := r.scanOne(r.db.Executor(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return model.Entity{}, model.Persistence("insert "+r.kind.String(), err)
	}
	return e, nil
}

func (r *EntityRepository) GetByID(ctx context.Context, id string) (model.Entity, error) {
	if !validID(id) {
		return model.Entity{}, model.NotFound(r.kind, id)
	}
	query, args, err := r.builder.Select(selectColumns...).
		From(r.kind.Table()).
		Where(sq.Eq{idColumn: id}).
		ToSql()
	if err != nil {
		return model.Entity{}, model.Persistence("build select "+r.kind.String(), err)
	}
	return r.one(ctx, "select "+r.kind.String(), id, query, args)
}

func (r *EntityRepository) List(ctx context.Context) ([]model.Entity, error) {
	query, args, err := r.builder.Select(selectColumns...).
		From(r.kind.Table()).
		OrderBy(createdAtColumn, idColumn).
		ToSql()
	if err != nil {
		return nil, model.Persistence("build list "+r.kind.String(), err)
	}

	rows, err := r.db.Executor(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, model.Persistence("list "+r.kind.String(), err)
	}
	defer rows.Close()

	out := []model.Entity{}
	for rows.Next() {
		e, err := r.scanOne(rows)
		if err != nil {
			return nil, model.Persistence("scan "+r.kind.String(), err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Persistence("list "+r.kind.String(), err)
	}
	return out, nil
}

// Update replaces both mutable fields.
func (r *EntityRepository) Update(ctx context.Context, id, nom, description string) (model.Entity, error) {
	if err := model.ValidateFields(nom); err != nil {
		return model.Entity{}, err
	}
	if !validID(id) {
		return model.Entity{}, model.NotFound(r.kind, id)
	}
	query, args, err := r.updateSQL(id, nom, description)
	if err != nil {
		return model.Entity{}, model.Persistence("build update "+r.kind.String(), err)
	}
	return r.one(ctx, "update "+r.kind.String(), id, query, args)
}

// Delete removes the entity and returns its last stored value.
func (r *EntityRepository) Delete(ctx context.Context, id string) (model.Entity, error) {
	if !validID(id) {
		return model.Entity{}, model.NotFound(r.kind, id)
	}
	query, args, err := r.builder.Delete(r.kind.Table()).
		Where(sq.Eq{idColumn: id}).
		Suffix(returning).
		ToSql()
	if err != nil {
		return model.Entity{}, model.Persistence("build delete "+r.kind.String(), err)
	}
	return r.one(ctx, "delete "+r.kind.String(), id, query, args)
}

func (r *EntityRepository) insertSQL(nom, description string) (string, []any, error) {
	return r.builder.Insert(r.kind.Table()).
		Columns(nomColumn, descriptionColumn).
		Values(nom, description).
		Suffix(returning).
		ToSql()
}

func (r *EntityRepository) updateSQL(id, nom, description string) (string, []any, error) {
	return r.builder.Update(r.kind.Table()).
		Set(nomColumn, nom).
		Set(descriptionColumn, description).
		Set(updatedAtColumn, sq.Expr("now()")).
		Where(sq.Eq{idColumn: id}).
		Suffix(returning).
		ToSql()
}

func (r *EntityRepository) one(ctx context.Context, op, id, query string, args []any) (model.Entity, error) {
	e, err := r.scanOne(r.db.Executor(ctx).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Entity{}, model.NotFound(r.kind, id)
	}
	if err != nil {
		return model.Entity{}, model.Persistence(op, err)
	}
	return e, nil
}

func (r *EntityRepository) scanOne(row pgx.Row) (model.Entity, error) {
	e := model.Entity{Kind: r.kind}
	err := row.Scan(&e.ID, &e.Nom, &e.Description, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// validID rejects ids the database could never have generated, which would
// otherwise surface as a uuid cast error instead of a miss.
func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
