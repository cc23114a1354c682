package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/alecthomas/assert/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage/memory"
)

func newAuthenticator(t *testing.T) (*PasswordAuthenticator, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(memory.New(), ledger.WithLogger(slog.New(slog.DiscardHandler)))
	return NewPasswordAuthenticator(l, WithCost(bcrypt.MinCost)), l
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuthenticator(t)

	p, err := a.Register(ctx, "+1 555 000 0001", "Alice", "correct horse")
	assert.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "+15550000001", p.PhoneNumber)
	assert.NotEqual(t, "correct horse", p.PasswordHash)

	got, err := a.Authenticate(ctx, "+15550000001", "correct horse")
	assert.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = a.Authenticate(ctx, "+15550000001", "wrong horse")
	assert.IsError(t, err, ErrInvalidCredentials)
	_, err = a.Authenticate(ctx, "+15559999999", "correct horse")
	assert.IsError(t, err, ErrInvalidCredentials)
}

func TestRegisterRejects(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuthenticator(t)
	_, err := a.Register(ctx, "+15550000001", "Alice", "password1")
	assert.NoError(t, err)

	_, err = a.Register(ctx, "+15550000001", "Mallory", "password2")
	assert.IsError(t, err, ErrPhoneExists)
	_, err = a.Register(ctx, "+15550000002", "Bob", "short")
	assert.IsError(t, err, ErrWeakPassword)
	_, err = a.Register(ctx, "", "Nobody", "password3")
	assert.IsError(t, err, ledger.ErrValidation)
}

func TestRegisterLinksShadowContacts(t *testing.T) {
	ctx := context.Background()
	a, l := newAuthenticator(t)
	alice, err := a.Register(ctx, "+15550000001", "Alice", "password1")
	assert.NoError(t, err)
	c, err := l.CreateContact(ctx, ledger.ContactInput{Owner: alice.ID, Name: "Bob", PhoneNumber: "+15550000002"})
	assert.NoError(t, err)
	assert.True(t, c.IsShadow())

	bob, err := a.Register(ctx, "+15550000002", "Bob", "password2")
	assert.NoError(t, err)

	got, err := l.GetContact(ctx, alice.ID, c.ID)
	assert.NoError(t, err)
	assert.Equal(t, bob.ID, got.LinkedProfileID)
}

// unreachableProfiles fails every lookup the way an unavailable store does.
type unreachableProfiles struct {
	created int
}

var errUnreachable = errors.New("database is locked")

func (u *unreachableProfiles) CreateProfile(context.Context, *models.UserProfile) error {
	u.created++
	return nil
}

func (u *unreachableProfiles) GetProfileByPhone(context.Context, string) (*models.UserProfile, error) {
	return nil, fmt.Errorf("get profile: %w: %w", ledger.ErrStore, errUnreachable)
}

func TestStoreFailuresAreNotCredentialErrors(t *testing.T) {
	ctx := context.Background()
	profiles := &unreachableProfiles{}
	a := NewPasswordAuthenticator(profiles, WithCost(bcrypt.MinCost))

	_, err := a.Authenticate(ctx, "+15550000001", "correct horse")
	assert.IsError(t, err, ledger.ErrStore)
	assert.False(t, errors.Is(err, ErrInvalidCredentials))

	_, err = a.Register(ctx, "+15550000001", "Alice", "correct horse")
	assert.IsError(t, err, errUnreachable)
	assert.Equal(t, 0, profiles.created)
}
