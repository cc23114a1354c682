package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const profileColumns = `id, phone_number, name, base_currency, password_hash, created_at, updated_at`

func scanProfile(row scanner) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	var phone sql.NullString
	var createdAt, updatedAt int64
	if err := row.Scan(&p.ID, &phone, &p.Name, &p.BaseCurrency, &p.PasswordHash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.PhoneNumber = phone.String
	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = fromNanos(updatedAt)
	return p, nil
}

// GetProfile retrieves a profile by ID.
func (s *queries) GetProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	p, err := scanProfile(s.q.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "profile", id)
	}
	return p, nil
}

// GetProfileByPhone retrieves a profile by its phone number.
func (s *queries) GetProfileByPhone(ctx context.Context, phone string) (*models.UserProfile, error) {
	p, err := scanProfile(s.q.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE phone_number = ?`, phone))
	if err != nil {
		return nil, notFound(err, "profile", phone)
	}
	return p, nil
}

// CreateProfile inserts a new profile.
func (s *txQueries) CreateProfile(ctx context.Context, p *models.UserProfile) error {
	stamp(&p.ID, &p.CreatedAt)
	p.UpdatedAt = p.CreatedAt
	if p.BaseCurrency == "" {
		p.BaseCurrency = "USD"
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO user_profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, nullString(p.PhoneNumber), p.Name, p.BaseCurrency, p.PasswordHash,
		toNanos(p.CreatedAt), toNanos(p.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("profile with phone %s: %w", p.PhoneNumber, storage.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// UpdateProfile writes name and base currency.
func (s *txQueries) UpdateProfile(ctx context.Context, p *models.UserProfile) error {
	p.UpdatedAt = now()
	res, err := s.q.ExecContext(ctx,
		`UPDATE user_profiles SET name = ?, base_currency = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.BaseCurrency, toNanos(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return requireRow(res, "profile", p.ID)
}
