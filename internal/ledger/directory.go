package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// ContactInput describes a new contact or the new state of an existing one.
type ContactInput struct {
	Owner       string
	Name        string
	PhoneNumber string
}

func normalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

// linkTarget returns the profile a contact with this phone should link to,
// or "" when nobody with that phone is registered.
func linkTarget(ctx context.Context, r storage.Reader, owner, phone string) (string, error) {
	if phone == "" {
		return "", nil
	}
	p, err := r.GetProfileByPhone(ctx, phone)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	// A user's own phone never turns a contact into themselves.
	if p.ID == owner {
		return "", nil
	}
	return p.ID, nil
}

// CreateContact adds a contact. If the phone number belongs to a
// registered profile the contact is linked to it straight away.
func (l *Ledger) CreateContact(ctx context.Context, in ContactInput) (*models.Contact, error) {
	name, err := cleanName("name", in.Name)
	if err != nil {
		return nil, err
	}
	c := &models.Contact{OwnerID: in.Owner, Name: name, PhoneNumber: normalizePhone(in.PhoneNumber)}

	err = l.atomic(ctx, "create contact", func(tx storage.Tx) error {
		linked, err := linkTarget(ctx, tx, in.Owner, c.PhoneNumber)
		if err != nil {
			return err
		}
		c.LinkedProfileID = linked
		return tx.CreateContact(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("contact created", "contact_id", c.ID, "owner", c.OwnerID, "shadow", c.IsShadow())
	return c, nil
}

// GetContact returns one of the owner's contacts.
func (l *Ledger) GetContact(ctx context.Context, owner, id string) (*models.Contact, error) {
	c, err := ownedContact(ctx, l.store, owner, id)
	return c, classify("get contact", err)
}

// ListContacts returns the owner's contacts ordered by name.
func (l *Ledger) ListContacts(ctx context.Context, owner string) ([]*models.Contact, error) {
	contacts, err := l.store.ListContacts(ctx, owner)
	return contacts, classify("list contacts", err)
}

// UpdateContact changes a contact's name and phone. A shadow contact whose
// new phone matches a registered profile gets linked; an existing link is
// never replaced.
func (l *Ledger) UpdateContact(ctx context.Context, id string, in ContactInput) (*models.Contact, error) {
	name, err := cleanName("name", in.Name)
	if err != nil {
		return nil, err
	}

	var out *models.Contact
	err = l.atomic(ctx, "update contact", func(tx storage.Tx) error {
		c, err := ownedContact(ctx, tx, in.Owner, id)
		if err != nil {
			return err
		}
		c.Name = name
		c.PhoneNumber = normalizePhone(in.PhoneNumber)
		if err := tx.UpdateContact(ctx, c); err != nil {
			return err
		}
		if c.IsShadow() {
			linked, err := linkTarget(ctx, tx, in.Owner, c.PhoneNumber)
			if err != nil {
				return err
			}
			if linked != "" {
				if err := tx.LinkContact(ctx, c.ID, linked); err != nil {
					return err
				}
				c.LinkedProfileID = linked
			}
		}
		out = c
		return nil
	})
	return out, err
}

// DeleteContact removes a contact that has never appeared in a split.
func (l *Ledger) DeleteContact(ctx context.Context, owner, id string) error {
	err := l.atomic(ctx, "delete contact", func(tx storage.Tx) error {
		if _, err := ownedContact(ctx, tx, owner, id); err != nil {
			return err
		}
		err := tx.DeleteContact(ctx, id)
		if errors.Is(err, storage.ErrConflict) {
			return invalid("contact_id", "contact %s has transactions", id)
		}
		return err
	})
	if err != nil {
		return err
	}

	l.logger.Info("contact deleted", "contact_id", id, "owner", owner)
	return nil
}

// LinkShadowContacts points every unlinked contact carrying phone at
// profileID. Contacts already linked keep their link. Returns how many
// contacts were linked.
func (l *Ledger) LinkShadowContacts(ctx context.Context, profileID, phone string) (int, error) {
	var n int
	err := l.atomic(ctx, "link contacts", func(tx storage.Tx) error {
		var err error
		n, err = tx.LinkContacts(ctx, normalizePhone(phone), profileID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		l.logger.Info("shadow contacts linked", "profile_id", profileID, "count", n)
	}
	return n, nil
}

// ListCategories returns the system categories and the user's own.
func (l *Ledger) ListCategories(ctx context.Context, owner string) ([]*models.Category, error) {
	categories, err := l.store.ListCategories(ctx, owner)
	return categories, classify("list categories", err)
}

// CreateCategory adds a category visible only to owner.
func (l *Ledger) CreateCategory(ctx context.Context, owner, name, icon, color string) (*models.Category, error) {
	name, err := cleanName("name", name)
	if err != nil {
		return nil, err
	}
	c := &models.Category{UserID: owner, Name: name, Icon: icon, Color: color}
	if err := l.atomic(ctx, "create category", func(tx storage.Tx) error {
		return tx.CreateCategory(ctx, c)
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateProfile registers a profile and links every shadow contact that
// carries its phone number, in one unit of work.
func (l *Ledger) CreateProfile(ctx context.Context, p *models.UserProfile) error {
	p.PhoneNumber = normalizePhone(p.PhoneNumber)
	if p.PhoneNumber == "" {
		return invalid("phone_number", "required")
	}
	currency, err := accountCurrency(p.BaseCurrency)
	if err != nil {
		return err
	}
	p.BaseCurrency = currency

	var linked int
	err = l.atomic(ctx, "create profile", func(tx storage.Tx) error {
		if err := tx.CreateProfile(ctx, p); err != nil {
			return err
		}
		var err error
		linked, err = tx.LinkContacts(ctx, p.PhoneNumber, p.ID)
		return err
	})
	if err != nil {
		return err
	}

	l.logger.Info("profile created", "profile_id", p.ID, "linked_contacts", linked)
	return nil
}

// GetProfile returns a profile by id.
func (l *Ledger) GetProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	p, err := l.store.GetProfile(ctx, id)
	return p, classify("get profile", err)
}

// GetProfileByPhone returns the profile registered with phone.
func (l *Ledger) GetProfileByPhone(ctx context.Context, phone string) (*models.UserProfile, error) {
	p, err := l.store.GetProfileByPhone(ctx, normalizePhone(phone))
	return p, classify("get profile", err)
}

// UpdateProfile changes the display name and base currency.
func (l *Ledger) UpdateProfile(ctx context.Context, id, name, baseCurrency string) (*models.UserProfile, error) {
	name, err := cleanName("name", name)
	if err != nil {
		return nil, err
	}
	currency, err := accountCurrency(baseCurrency)
	if err != nil {
		return nil, err
	}

	var out *models.UserProfile
	err = l.atomic(ctx, "update profile", func(tx storage.Tx) error {
		p, err := tx.GetProfile(ctx, id)
		if err != nil {
			return err
		}
		p.Name = name
		p.BaseCurrency = currency
		if err := tx.UpdateProfile(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}
