package repository

import (
	"reflect"
	"sort"
	"strings"
)

// Filters is a flat column -> value map combined with AND into an
// exact-match WHERE clause.  A nil value (or typed nil pointer) means the
// filter is absent; it is skipped rather than turned into IS NULL.
type Filters map[string]any

// Clause is a SQL fragment and the arguments for its placeholders, in
// placeholder order.
type Clause struct {
	SQL  string
	Args []any
}

// present unwraps non-nil pointers and reports whether v carries a value.
func present(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		return rv.Elem().Interface(), true
	}
	return v, true
}

// Keys returns the columns of the present filters in sorted order.
func (f Filters) Keys() []string {
	keys := make([]string, 0, len(f))
	for k, v := range f {
		if _, ok := present(v); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// BuildWhere renders f as " WHERE a = ? AND b = ?".  The placeholder count
// always equals len(Args) and the arguments are appended in the same order
// as the conjuncts.  An empty or all-absent map yields an empty clause.
func BuildWhere(f Filters) Clause {
	keys := f.Keys()
	if len(keys) == 0 {
		return Clause{Args: []any{}}
	}
	conds := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		v, _ := present(f[k])
		conds = append(conds, k+" = ?")
		args = append(args, v)
	}
	return Clause{SQL: " WHERE " + strings.Join(conds, " AND "), Args: args}
}

// Assignment is one column/value pair of an INSERT or UPDATE.
type Assignment struct {
	Column string
	Value  any
}

// setIf appends col = *v when v is non-nil.
func setIf[T any](list []Assignment, col string, v *T) []Assignment {
	if v == nil {
		return list
	}
	return append(list, Assignment{Column: col, Value: *v})
}

// BuildSet renders "a = ?, b = ?" for the given assignments.
func BuildSet(values []Assignment) Clause {
	parts := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for _, a := range values {
		parts = append(parts, a.Column+" = ?")
		args = append(args, a.Value)
	}
	return Clause{SQL: strings.Join(parts, ", "), Args: args}
}

// BuildInsert renders "INSERT INTO table (a, b) VALUES (?, ?)".
func BuildInsert(table string, values []Assignment) Clause {
	cols := make([]string, 0, len(values))
	marks := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for _, a := range values {
		cols = append(cols, a.Column)
		marks = append(marks, "?")
		args = append(args, a.Value)
	}
	return Clause{
		SQL:  "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")",
		Args: args,
	}
}

// where accumulates hand-built conditions for the searches that need more
// than exact matches (ranges, LIKE, MATCH).
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
