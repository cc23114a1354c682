package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const (
	contactColumns  = `id, owner_id, name, phone_number, linked_profile_id, created_at`
	categoryColumns = `id, user_id, name, icon, color, is_system, created_at`
)

func scanContact(row scanner) (*models.Contact, error) {
	c := &models.Contact{}
	var phone, linked sql.NullString
	var createdAt int64
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &phone, &linked, &createdAt); err != nil {
		return nil, err
	}
	c.PhoneNumber = phone.String
	c.LinkedProfileID = linked.String
	c.CreatedAt = fromNanos(createdAt)
	return c, nil
}

func scanCategory(row scanner) (*models.Category, error) {
	c := &models.Category{}
	var userID sql.NullString
	var createdAt int64
	if err := row.Scan(&c.ID, &userID, &c.Name, &c.Icon, &c.Color, &c.IsSystem, &createdAt); err != nil {
		return nil, err
	}
	c.UserID = userID.String
	if createdAt != 0 {
		c.CreatedAt = fromNanos(createdAt)
	}
	return c, nil
}

// GetContact retrieves a contact by ID.
func (s *queries) GetContact(ctx context.Context, id string) (*models.Contact, error) {
	c, err := scanContact(s.q.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "contact", id)
	}
	return c, nil
}

// ListContacts retrieves all contacts owned by a user, ordered by name.
func (s *queries) ListContacts(ctx context.Context, ownerID string) ([]*models.Contact, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE owner_id = ? ORDER BY name, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return collect(rows, "contact", scanContact)
}

// GetCategory retrieves a category by ID.
func (s *queries) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	c, err := scanCategory(s.q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "category", id)
	}
	return c, nil
}

// ListCategories returns system categories followed by the user's own.
func (s *queries) ListCategories(ctx context.Context, userID string) ([]*models.Category, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 WHERE is_system = 1 OR user_id = ?
		 ORDER BY is_system DESC, CASE WHEN is_system = 1 THEN id ELSE name END, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return collect(rows, "category", scanCategory)
}

// CreateContact inserts a new contact.
func (s *txQueries) CreateContact(ctx context.Context, c *models.Contact) error {
	stamp(&c.ID, &c.CreatedAt)
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO contacts (`+contactColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, nullString(c.PhoneNumber), nullString(c.LinkedProfileID), toNanos(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// UpdateContact writes name and phone number.
func (s *txQueries) UpdateContact(ctx context.Context, c *models.Contact) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE contacts SET name = ?, phone_number = ? WHERE id = ?`,
		c.Name, nullString(c.PhoneNumber), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	return requireRow(res, "contact", c.ID)
}

// DeleteContact removes a contact that has no splits.
func (s *txQueries) DeleteContact(ctx context.Context, id string) error {
	var n int
	if err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM splits WHERE contact_id = ?`, id,
	).Scan(&n); err != nil {
		return fmt.Errorf("failed to count contact splits: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("contact %s has splits: %w", id, storage.ErrConflict)
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return requireRow(res, "contact", id)
}

// LinkContact links one unlinked contact to profileID.
func (s *txQueries) LinkContact(ctx context.Context, id, profileID string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE contacts SET linked_profile_id = ? WHERE id = ? AND linked_profile_id IS NULL`,
		profileID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to link contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetContact(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("contact %s already linked: %w", id, storage.ErrConflict)
}

// LinkContacts sets linked_profile_id on unlinked contacts with the phone,
// skipping the profile's own contacts.
func (s *txQueries) LinkContacts(ctx context.Context, phone, profileID string) (int, error) {
	if phone == "" {
		return 0, nil
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE contacts SET linked_profile_id = ?
		 WHERE phone_number = ? AND linked_profile_id IS NULL AND owner_id <> ?`,
		profileID, phone, profileID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to link contacts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

// CreateCategory inserts a user category.
func (s *txQueries) CreateCategory(ctx context.Context, c *models.Category) error {
	stamp(&c.ID, &c.CreatedAt)
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, nullString(c.UserID), c.Name, c.Icon, c.Color, c.IsSystem, toNanos(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}
