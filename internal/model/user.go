package model

import "time"

// User mirrors a row of the `users` table.  Users are never hard-deleted;
// deactivation clears IsActive.  Location columns are nullable.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	AvatarURL    *string   `db:"avatar_url" json:"avatarUrl,omitempty"`
	Bio          *string   `db:"bio" json:"bio,omitempty"`
	Latitude     *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude    *float64  `db:"longitude" json:"longitude,omitempty"`
	Address      *string   `db:"address" json:"address,omitempty"`
	IsVerified   bool      `db:"is_verified" json:"isVerified"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Public returns the profile without private contact fields.
func (u *User) Public() UserSummary {
	return UserSummary{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		AvatarURL:  u.AvatarURL,
		IsVerified: u.IsVerified,
	}
}

// UserSummary is the embedded shape used inside detail reads.
type UserSummary struct {
	ID         string  `json:"id"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	AvatarURL  *string `json:"avatarUrl,omitempty"`
	IsVerified bool    `json:"isVerified"`
}

// UserCreate is the insert shape for a new user.
type UserCreate struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	Latitude     *float64
	Longitude    *float64
	Address      *string
}

// UserPatch holds profile fields a user may change.  Nil fields are left
// untouched.
type UserPatch struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	AvatarURL    *string
	Bio          *string
	Latitude     *float64
	Longitude    *float64
	Address      *string
	PasswordHash *string
	IsVerified   *bool
	IsActive     *bool
}

// UserWithDistance is a user row annotated with the distance from a search
// centre in kilometres.
type UserWithDistance struct {
	User
	Distance float64 `db:"distance" json:"distance"`
}

// UserStats is the zero-filled rollup returned for a profile.
type UserStats struct {
	ItemsCount     int     `db:"items_count" json:"itemsCount"`
	ActiveLoans    int     `db:"active_loans" json:"activeLoans"`
	CompletedLoans int     `db:"completed_loans" json:"completedLoans"`
	ReviewCount    int     `db:"review_count" json:"reviewCount"`
	AverageRating  float64 `db:"average_rating" json:"averageRating"`
}
