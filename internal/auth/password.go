package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid phone number or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrPhoneExists        = errors.New("phone number already registered")
)

// ProfileStorage is the part of the ledger the authenticator needs.
// *ledger.Ledger satisfies it.
type ProfileStorage interface {
	CreateProfile(ctx context.Context, p *models.UserProfile) error
	GetProfileByPhone(ctx context.Context, phone string) (*models.UserProfile, error)
}

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	storage ProfileStorage
	cost    int
}

// PasswordOption configures a PasswordAuthenticator.
type PasswordOption func(*PasswordAuthenticator)

// WithCost sets the bcrypt cost. Values outside bcrypt's range fall back
// to bcrypt.DefaultCost.
func WithCost(cost int) PasswordOption {
	return func(a *PasswordAuthenticator) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			a.cost = cost
		}
	}
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage ProfileStorage, opts ...PasswordOption) *PasswordAuthenticator {
	a := &PasswordAuthenticator{
		storage: storage,
		cost:    bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a profile with a hashed password.
func (a *PasswordAuthenticator) Register(ctx context.Context, phone, name, credential string) (*models.UserProfile, error) {
	if err := a.ValidateCredential(credential); err != nil {
		return nil, err
	}

	existing, err := a.storage.GetProfileByPhone(ctx, phone)
	switch {
	case err == nil && existing != nil:
		return nil, ErrPhoneExists
	case err != nil && !ledger.IsNotFound(err):
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile := &models.UserProfile{
		PhoneNumber:  phone,
		Name:         name,
		PasswordHash: string(hashed),
	}
	if err := a.storage.CreateProfile(ctx, profile); err != nil {
		// Lost a race with another registration for the same phone.
		if errors.Is(err, ledger.ErrAlreadyExists) {
			return nil, ErrPhoneExists
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return profile, nil
}

// Authenticate verifies the phone number and password, returning the
// profile if valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, phone, credential string) (*models.UserProfile, error) {
	profile, err := a.storage.GetProfileByPhone(ctx, phone)
	if ledger.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return profile, nil
}
