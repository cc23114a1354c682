package models

import "time"

// UserProfile is a registered user. Identity is established by phone number.
type UserProfile struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// PhoneNumber is unique across profiles and is what shadow contacts
	// are matched against.
	PhoneNumber string

	Name string

	// BaseCurrency is the currency dashboard totals are reported in.
	BaseCurrency string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category classifies expense splits. System categories have no UserID and
// are visible to everyone.
type Category struct {
	ID       string
	UserID   string
	Name     string
	Icon     string
	Color    string
	IsSystem bool

	CreatedAt time.Time
}

// VisibleTo reports whether userID may use the category.
func (c *Category) VisibleTo(userID string) bool {
	return c.IsSystem || c.UserID == userID
}
