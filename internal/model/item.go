package model

import "time"

// ItemCondition grades the physical state of a listed item.
type ItemCondition string

const (
	ConditionNew     ItemCondition = "new"
	ConditionLikeNew ItemCondition = "like_new"
	ConditionGood    ItemCondition = "good"
	ConditionFair    ItemCondition = "fair"
	ConditionPoor    ItemCondition = "poor"
)

// Item mirrors the `items` table.  OwnerID is fixed at creation.
type Item struct {
	ID             string        `db:"id" json:"id"`
	OwnerID        string        `db:"owner_id" json:"ownerId"`
	CategoryID     string        `db:"category_id" json:"categoryId"`
	Title          string        `db:"title" json:"title"`
	Description    string        `db:"description" json:"description"`
	Condition      ItemCondition `db:"item_condition" json:"condition"`
	EstimatedValue *float64      `db:"estimated_value" json:"estimatedValue,omitempty"`
	DailyRate      float64       `db:"daily_rate" json:"dailyRate"`
	Latitude       *float64      `db:"latitude" json:"latitude,omitempty"`
	Longitude      *float64      `db:"longitude" json:"longitude,omitempty"`
	Address        *string       `db:"address" json:"address,omitempty"`
	IsAvailable    bool          `db:"is_available" json:"isAvailable"`
	IsActive       bool          `db:"is_active" json:"isActive"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`
}

// ItemCreate is the insert shape.  The owner comes from the authenticated
// user, never from the request body.
type ItemCreate struct {
	OwnerID        string
	CategoryID     string
	Title          string
	Description    string
	Condition      ItemCondition
	EstimatedValue *float64
	DailyRate      float64
	Latitude       *float64
	Longitude      *float64
	Address        *string
}

// ItemPatch lists the mutable item fields.  There is no OwnerID.
type ItemPatch struct {
	CategoryID     *string
	Title          *string
	Description    *string
	Condition      *ItemCondition
	EstimatedValue *float64
	DailyRate      *float64
	Latitude       *float64
	Longitude      *float64
	Address        *string
	IsAvailable    *bool
	IsActive       *bool
}

// ItemImage belongs to one item; at most one image per item is primary.
type ItemImage struct {
	ID        string    `db:"id" json:"id"`
	ItemID    string    `db:"item_id" json:"itemId"`
	URL       string    `db:"url" json:"url"`
	AltText   *string   `db:"alt_text" json:"altText,omitempty"`
	IsPrimary bool      `db:"is_primary" json:"isPrimary"`
	SortOrder int       `db:"sort_order" json:"sortOrder"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type ItemImageCreate struct {
	ItemID    string
	URL       string
	AltText   *string
	IsPrimary bool
	SortOrder int
}

// OwnerSummary is the item owner with the rating aggregated from the
// reviews they received.
type OwnerSummary struct {
	UserSummary
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}

// ItemWithDetails is the joined read shape: item, owner, category and images.
// Distance is set only when a reference point was known.
type ItemWithDetails struct {
	Item
	Owner    OwnerSummary    `json:"owner"`
	Category CategorySummary `json:"category"`
	Images   []ItemImage     `json:"images"`
	Distance *float64        `json:"distance,omitempty"`
}

// ItemWithDistance is a FindNearby result row.
type ItemWithDistance struct {
	Item
	Distance float64 `db:"distance" json:"distance"`
}

// ItemSearch carries the optional filters of the item search.  A nil or
// zero field is not applied.
type ItemSearch struct {
	Search      string
	CategoryID  string
	Condition   ItemCondition
	OwnerID     string
	IsAvailable *bool
	MinRate     *float64
	MaxRate     *float64
	MinRating   *float64
	Latitude    *float64
	Longitude   *float64
	RadiusKm    *float64
}
