package model

import "time"

// Category is static reference data.  Categories referenced by items are
// deactivated, never deleted.
type Category struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Icon        *string   `db:"icon" json:"icon,omitempty"`
	Color       *string   `db:"color" json:"color,omitempty"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type CategoryCreate struct {
	Name        string
	Description *string
	Icon        *string
	Color       *string
}

type CategoryPatch struct {
	Name        *string
	Description *string
	Icon        *string
	Color       *string
	IsActive    *bool
}

// CategoryWithCount adds the number of active items in the category.
type CategoryWithCount struct {
	Category
	ItemsCount int `db:"items_count" json:"itemsCount"`
}

// CategorySummary is embedded in item detail reads.
type CategorySummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Icon  *string `json:"icon,omitempty"`
	Color *string `json:"color,omitempty"`
}

type CategoryStats struct {
	ItemsCount       int     `db:"items_count" json:"itemsCount"`
	AvailableItems   int     `db:"available_items" json:"availableItems"`
	ActiveLoans      int     `db:"active_loans" json:"activeLoans"`
	AverageDailyRate float64 `db:"average_daily_rate" json:"averageDailyRate"`
}
