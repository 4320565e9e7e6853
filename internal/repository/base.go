package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Values is an explicit, ordered list of column assignments used by Create
// and Update.  Only the fields a caller actually set appear in the list.
type Values interface {
	Assignments() []Assignment
}

// Set is the plain slice implementation of Values.
type Set []Assignment

func (s Set) Assignments() []Assignment { return s }

// Table describes what a Base repository works on: the table name, the
// fixed read projection, the columns callers may filter on and the
// optional active flag used for soft deletes.
type Table struct {
	Name         string
	Columns      string
	Filterable   []string
	ActiveColumn string
}

// Base implements the CRUD, filtering and pagination shared by every
// domain repository.  It holds no state besides its table description and
// is safe for concurrent use.
type Base[T any] struct {
	ex         *Executor
	table      Table
	filterable map[string]bool
}

func NewBase[T any](ex *Executor, t Table) *Base[T] {
	allowed := map[string]bool{"id": true}
	for _, c := range t.Filterable {
		allowed[c] = true
	}
	return &Base[T]{ex: ex, table: t, filterable: allowed}
}

// Executor returns the executor the repository runs its statements on.
func (b *Base[T]) Executor() *Executor { return b.ex }

// Table returns the table description.
func (b *Base[T]) Table() Table { return b.table }

func (b *Base[T]) selectFrom() string {
	return "SELECT " + b.table.Columns + " FROM " + b.table.Name
}

func (b *Base[T]) where(f Filters) (Clause, error) {
	for k := range f {
		if !b.filterable[k] {
			return Clause{}, fmt.Errorf("%w: %s", ErrUnknownFilter, k)
		}
	}
	return BuildWhere(f), nil
}

// FindByID returns the row with the given id, or nil when there is none.
func (b *Base[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return Get[T](ctx, b.ex, b.selectFrom()+" WHERE id = ?", id)
}

// FindAll returns every row matching f, newest first.
func (b *Base[T]) FindAll(ctx context.Context, f Filters) ([]T, error) {
	w, err := b.where(f)
	if err != nil {
		return nil, err
	}
	return Select[T](ctx, b.ex, b.selectFrom()+w.SQL+" ORDER BY created_at DESC", w.Args...)
}

// FindWithPagination counts the rows matching f and returns one page of
// them.  Both statements share the same WHERE clause.
func (b *Base[T]) FindWithPagination(ctx context.Context, f Filters, req PageRequest) (Page[T], error) {
	w, err := b.where(f)
	if err != nil {
		return Page[T]{}, err
	}
	total, err := b.ex.Count(ctx, "SELECT COUNT(*) FROM "+b.table.Name+w.SQL, w.Args...)
	if err != nil {
		return Page[T]{}, err
	}
	args := append(append([]any{}, w.Args...), req.Limit, req.Offset())
	rows, err := Select[T](ctx, b.ex, b.selectFrom()+w.SQL+" ORDER BY created_at DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return Page[T]{}, err
	}
	return NewPage(rows, total, req), nil
}

// Create inserts a row with a freshly generated id followed by the given
// values, then reads it back so database defaults are reflected.
func (b *Base[T]) Create(ctx context.Context, v Values) (*T, error) {
	id := uuid.NewString()
	cols := append([]Assignment{{Column: "id", Value: id}}, v.Assignments()...)
	ins := BuildInsert(b.table.Name, cols)
	if _, err := b.ex.Exec(ctx, ins.SQL, ins.Args...); err != nil {
		return nil, err
	}
	return b.FindByID(ctx, id)
}

// Update sets only the given values and returns the row as stored.  With
// no values it issues no UPDATE and returns the current row.
func (b *Base[T]) Update(ctx context.Context, id string, v Values) (*T, error) {
	values := v.Assignments()
	if len(values) == 0 {
		return b.FindByID(ctx, id)
	}
	set := BuildSet(values)
	args := append(set.Args, id)
	if _, err := b.ex.Exec(ctx, "UPDATE "+b.table.Name+" SET "+set.SQL+" WHERE id = ?", args...); err != nil {
		return nil, err
	}
	return b.FindByID(ctx, id)
}

// Delete removes the row and reports whether one was removed.
func (b *Base[T]) Delete(ctx context.Context, id string) (bool, error) {
	res, err := b.ex.Exec(ctx, "DELETE FROM "+b.table.Name+" WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SoftDelete clears the active flag.  The row stays readable by id.
func (b *Base[T]) SoftDelete(ctx context.Context, id string) (*T, error) {
	if b.table.ActiveColumn == "" {
		return nil, ErrSoftDeleteUnsupported
	}
	return b.Update(ctx, id, Set{{Column: b.table.ActiveColumn, Value: false}})
}

// Exists reports whether a row with the id is present, active or not.
func (b *Base[T]) Exists(ctx context.Context, id string) (bool, error) {
	n, err := b.Count(ctx, Filters{"id": id})
	return n > 0, err
}

// Count returns the number of rows matching f.
func (b *Base[T]) Count(ctx context.Context, f Filters) (int, error) {
	w, err := b.where(f)
	if err != nil {
		return 0, err
	}
	return b.ex.Count(ctx, "SELECT COUNT(*) FROM "+b.table.Name+w.SQL, w.Args...)
}
