package auth

import (
	"context"

	"github.com/mmynk/splitledger/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// Identity is the phone number: it is what shadow contacts are matched
// against, so every method is keyed on it.
type Authenticator interface {
	// Register creates a profile for phone with the given credential.
	// Contacts other users created with the same phone become linked to it.
	Register(ctx context.Context, phone, name, credential string) (*models.UserProfile, error)

	// Authenticate verifies the credential and returns the profile.
	Authenticate(ctx context.Context, phone, credential string) (*models.UserProfile, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
