package memory

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return New()
	})
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner, account, contacts := storagetest.Seed(t, s, "Ann")

	got, err := s.GetAccount(ctx, account.ID)
	assert.NoError(t, err)
	got.Name = "changed"

	list, err := s.ListContacts(ctx, owner.ID)
	assert.NoError(t, err)
	list[0].Name = "changed"

	again, err := s.GetAccount(ctx, account.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Wallet", again.Name)
	c, err := s.GetContact(ctx, contacts[0].ID)
	assert.NoError(t, err)
	assert.Equal(t, "Ann", c.Name)
}

func TestPingAfterClose(t *testing.T) {
	ctx := context.Background()
	s := New()
	assert.NoError(t, s.Ping(ctx))
	assert.NoError(t, s.Close())
	assert.IsError(t, s.Ping(ctx), ErrClosed)
}

func TestAtomicHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New()
	called := false
	err := s.Atomic(ctx, func(tx storage.Tx) error {
		called = true
		return tx.CreateContact(ctx, &models.Contact{OwnerID: "u", Name: "x"})
	})
	assert.IsError(t, err, context.Canceled)
	assert.False(t, called)
}
