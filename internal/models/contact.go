package models

import "time"

// Contact is a friend the owner shares expenses with. The friend may not
// have an account of their own (a "shadow contact").
type Contact struct {
	// ID is the unique identifier for the contact (UUID format).
	ID string

	// OwnerID is the user who created the contact.
	OwnerID string

	// Name is the display name chosen by the owner.
	Name string

	// PhoneNumber is optional and is the key used to link the contact to a
	// registered profile.
	PhoneNumber string

	// LinkedProfileID is the registered user this contact turned out to be.
	// Empty for shadow contacts. Set at most once.
	LinkedProfileID string

	CreatedAt time.Time
}

// IsShadow reports whether the contact is not yet linked to a real profile.
func (c *Contact) IsShadow() bool {
	return c.LinkedProfileID == ""
}
