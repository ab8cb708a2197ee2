package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

var (
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate key")
	// ErrMissingReference is returned when a write points at a row that does not exist.
	ErrMissingReference = errors.New("missing referenced row")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Table describes how one entity kind maps onto a SQL table.
type Table[T any] struct {
	Name string
	// Columns excludes the id column and defines the order of Values and Scan.
	Columns []string
	// Fields maps filter field names to SQL expressions.
	Fields map[string]string
	Scan   func(row scanner) (*T, error)
	Values func(*T) []any
	ID     func(*T) int64
	SetID  func(*T, int64)
}

func (t *Table[T]) col(name string) string {
	return t.Name + "." + name
}

func (t *Table[T]) selectColumns() []string {
	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, t.col("id"))
	for _, c := range t.Columns {
		cols = append(cols, t.col(c))
	}
	return cols
}

func (t *Table[T]) selectAll() sq.SelectBuilder {
	return psql.Select(t.selectColumns()...).From(t.Name)
}

// scope is the session shared by every repository of one unit of work.
type scope struct {
	tx       DBTX
	db       DBTX
	affected int64
}

func (s *scope) staged(n int64) {
	s.affected += n
}

// Repository provides CRUD, count and filtered queries over one entity kind.
// Writes other than Delete are staged in the unit's transaction.
type Repository[T any] struct {
	table *Table[T]
	scope *scope
}

func newRepository[T any](table *Table[T], s *scope) Repository[T] {
	return Repository[T]{table: table, scope: s}
}

// Add stages an insert and writes the generated id back into entity.
func (r *Repository[T]) Add(ctx context.Context, entity *T) error {
	query, args, err := psql.Insert(r.table.Name).
		Columns(r.table.Columns...).
		Values(r.table.Values(entity)...).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s: %w", r.table.Name, err)
	}

	var id int64
	if err := r.scope.tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return fmt.Errorf("insert %s: %w", r.table.Name, translate(err))
	}
	r.table.SetID(entity, id)
	r.scope.staged(1)
	return nil
}

// AddMany stages every entity once, in order.
func (r *Repository[T]) AddMany(ctx context.Context, entities []*T) error {
	for _, e := range entities {
		if err := r.Add(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Update stages a full overwrite of every column of the row with entity's id.
func (r *Repository[T]) Update(ctx context.Context, entity *T) error {
	values := r.table.Values(entity)
	b := psql.Update(r.table.Name)
	for i, c := range r.table.Columns {
		b = b.Set(c, values[i])
	}
	_, err := r.exec(ctx, b.Where(sq.Eq{"id": r.table.ID(entity)}))
	return err
}

// Delete removes the row immediately, outside the unit's transaction, and
// reports whether it existed. A later Rollback does not restore it.
func (r *Repository[T]) Delete(ctx context.Context, id int64) (bool, error) {
	query, args, err := psql.Delete(r.table.Name).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete %s: %w", r.table.Name, err)
	}

	result, err := r.scope.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", r.table.Name, translate(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository[T]) GetAll(ctx context.Context) ([]*T, error) {
	return r.list(ctx, r.table.selectAll().OrderBy(r.table.col("id")))
}

// GetByID returns nil when no row has the id.
func (r *Repository[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	return r.one(ctx, r.table.selectAll().Where(sq.Eq{r.table.col("id"): id}))
}

func (r *Repository[T]) GetCount(ctx context.Context) (int64, error) {
	return r.count(ctx, psql.Select("COUNT(*)").From(r.table.Name))
}

// Find returns one page of the rows matching every condition of f, in id order.
func (r *Repository[T]) Find(ctx context.Context, f Filter, p Page) ([]*T, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b, err := where(r.table.selectAll(), f, r.table.Fields)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, paginate(b.OrderBy(r.table.col("id")), p))
}

func (r *Repository[T]) Count(ctx context.Context, f Filter) (int64, error) {
	b, err := where(psql.Select("COUNT(*)").From(r.table.Name), f, r.table.Fields)
	if err != nil {
		return 0, err
	}
	return r.count(ctx, b)
}

// FindOne returns the first row matching f, or nil.
func (r *Repository[T]) FindOne(ctx context.Context, f Filter) (*T, error) {
	b, err := where(r.table.selectAll(), f, r.table.Fields)
	if err != nil {
		return nil, err
	}
	return r.one(ctx, b.OrderBy(r.table.col("id")).Limit(1))
}

// FindAll returns every row matching f, in id order.
func (r *Repository[T]) FindAll(ctx context.Context, f Filter) ([]*T, error) {
	b, err := where(r.table.selectAll(), f, r.table.Fields)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, b.OrderBy(r.table.col("id")))
}

func (r *Repository[T]) list(ctx context.Context, b sq.SelectBuilder) ([]*T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", r.table.Name, err)
	}

	rows, err := r.scope.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", r.table.Name, err)
	}
	defer rows.Close()

	items := []*T{}
	for rows.Next() {
		item, err := r.table.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table.Name, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository[T]) one(ctx context.Context, b sq.SelectBuilder) (*T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", r.table.Name, err)
	}

	item, err := r.table.Scan(r.scope.tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select %s: %w", r.table.Name, err)
	}
	return item, nil
}

func (r *Repository[T]) count(ctx context.Context, b sq.SelectBuilder) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count %s: %w", r.table.Name, err)
	}

	var n int64
	if err := r.scope.tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.table.Name, err)
	}
	return n, nil
}

// exec stages a write and reports the number of affected rows.
func (r *Repository[T]) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build write %s: %w", r.table.Name, err)
	}

	result, err := r.scope.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", r.table.Name, translate(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	r.scope.staged(n)
	return n, nil
}

func where(b sq.SelectBuilder, f Filter, fields map[string]string) (sq.SelectBuilder, error) {
	if f.Len() == 0 {
		return b, nil
	}
	cond, err := f.sqlizer(fields)
	if err != nil {
		return b, err
	}
	return b.Where(cond), nil
}

func paginate(b sq.SelectBuilder, p Page) sq.SelectBuilder {
	return b.Limit(uint64(p.Size)).Offset(uint64(p.Skip()))
}

// translate maps driver errors that callers branch on to package errors.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case uniqueViolation:
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	case foreignKeyViolation:
		return fmt.Errorf("%w: %s", ErrMissingReference, pqErr.Constraint)
	}
	return err
}
