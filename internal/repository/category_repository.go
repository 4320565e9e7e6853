package repository

import (
	"context"

	"github.com/emprestaae/empresta-api/internal/model"
)

const categoryColumns = "id, name, description, icon, color, is_active, created_at, updated_at"

var categoryTable = Table{
	Name:         "categories",
	Columns:      categoryColumns,
	Filterable:   []string{"name", "is_active"},
	ActiveColumn: "is_active",
}

// CategoryRepo serves the category reference data.
type CategoryRepo struct{ *Base[model.Category] }

func NewCategoryRepo(ex *Executor) *CategoryRepo {
	return &CategoryRepo{NewBase[model.Category](ex, categoryTable)}
}

func (r *CategoryRepo) Create(ctx context.Context, in model.CategoryCreate) (*model.Category, error) {
	s := Set{{Column: "name", Value: in.Name}}
	s = setIf(s, "description", in.Description)
	s = setIf(s, "icon", in.Icon)
	s = setIf(s, "color", in.Color)
	c, err := r.Base.Create(ctx, s)
	if isDuplicateKey(err) {
		return nil, ErrConflict
	}
	return c, err
}

func (r *CategoryRepo) Update(ctx context.Context, id string, in model.CategoryPatch) (*model.Category, error) {
	var s Set
	s = setIf(s, "name", in.Name)
	s = setIf(s, "description", in.Description)
	s = setIf(s, "icon", in.Icon)
	s = setIf(s, "color", in.Color)
	s = setIf(s, "is_active", in.IsActive)
	return r.Base.Update(ctx, id, s)
}

const categoryActiveSQL = "SELECT c.id, c.name, c.description, c.icon, c.color, c.is_active, c.created_at, c.updated_at," +
	" COUNT(i.id) AS items_count FROM categories c" +
	" LEFT JOIN items i ON i.category_id = c.id AND i.is_active = 1" +
	" WHERE c.is_active = 1 GROUP BY c.id ORDER BY c.name ASC"

// FindActive lists active categories by name with their active item count.
func (r *CategoryRepo) FindActive(ctx context.Context) ([]model.CategoryWithCount, error) {
	return Select[model.CategoryWithCount](ctx, r.ex, categoryActiveSQL)
}

func (r *CategoryRepo) FindByName(ctx context.Context, name string) (*model.Category, error) {
	return Get[model.Category](ctx, r.ex, r.selectFrom()+" WHERE name = ? LIMIT 1", name)
}

const categoryStatsSQL = `SELECT
	(SELECT COUNT(*) FROM items WHERE category_id = ? AND is_active = 1) AS items_count,
	(SELECT COUNT(*) FROM items WHERE category_id = ? AND is_active = 1 AND is_available = 1) AS available_items,
	(SELECT COUNT(*) FROM loans l JOIN items i ON i.id = l.item_id
		WHERE i.category_id = ? AND l.status = 'active') AS active_loans,
	(SELECT COALESCE(AVG(daily_rate), 0) FROM items WHERE category_id = ? AND is_active = 1) AS average_daily_rate`

// GetStats aggregates the active items of a category.  Empty categories
// get zeros.
func (r *CategoryRepo) GetStats(ctx context.Context, categoryID string) (model.CategoryStats, error) {
	st, err := Get[model.CategoryStats](ctx, r.ex, categoryStatsSQL, categoryID, categoryID, categoryID, categoryID)
	if err != nil || st == nil {
		return model.CategoryStats{}, err
	}
	return *st, nil
}
