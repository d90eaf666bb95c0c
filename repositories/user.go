//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"courier/domain"
	apperrors "courier/errors"
)

type IUserRepository interface {
	Create(user domain.User) error
	GetByID(id uuid.UUID) (domain.User, error)
	FindActiveByEmails(emails []string) ([]domain.User, error)
	Update(user domain.User) error
	SoftDelete(id uuid.UUID) error
}

// UserRepository persists users in BadgerDB.
// Keys:
//
//	user:{id}           -> user record (JSON)
//	user_email:{email}  -> user id, index over active users only
//
// The email index entry is removed on soft-delete, which frees the address
// and makes FindActiveByEmails skip the record without a second lookup.
type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUserRepository(db *badger.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

var _ IUserRepository = (*UserRepository)(nil)

type storedUser struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     string     `json:"phone,omitempty"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func userKey(id uuid.UUID) []byte {
	return []byte("user:" + id.String())
}

func emailKey(email string) []byte {
	return []byte("user_email:" + domain.NormalizeEmail(email))
}

// Create persists a new user and claims its email in the index.
// The email must not belong to another active user.
func (r *UserRepository) Create(user domain.User) error {
	user.Email = domain.NormalizeEmail(user.Email)
	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(user.Email)); err == nil {
			return fmt.Errorf("%w: email %q already in use", apperrors.ErrValidation, user.Email)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(userKey(user.ID), data); err != nil {
			return err
		}
		return txn.Set(emailKey(user.Email), []byte(user.ID.String()))
	})
}

func (r *UserRepository) GetByID(id uuid.UUID) (domain.User, error) {
	var stored storedUser
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		stored, err = r.readUser(txn, id)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return toUser(stored), nil
}

// FindActiveByEmails resolves the given emails against the active index.
// Partial results are valid; the caller diffs input against output to
// detect missing or soft-deleted users.
func (r *UserRepository) FindActiveByEmails(emails []string) ([]domain.User, error) {
	var found []domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		for _, email := range emails {
			item, err := txn.Get(emailKey(email))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var id uuid.UUID
			if err := item.Value(func(val []byte) error {
				id, err = uuid.Parse(string(val))
				return err
			}); err != nil {
				return err
			}
			stored, err := r.readUser(txn, id)
			if err != nil {
				return fmt.Errorf("dangling email index for %q: %w", email, err)
			}
			if stored.DeletedAt == nil {
				found = append(found, toUser(stored))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Update rewrites a user record, moving the email index entry when the
// address changed. Claiming an address held by a different user fails with
// a validation error.
func (r *UserRepository) Update(user domain.User) error {
	user.Email = domain.NormalizeEmail(user.Email)
	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		current, err := r.readUser(txn, user.ID)
		if err != nil {
			return err
		}
		if current.Email != user.Email {
			if err := r.claimEmail(txn, user); err != nil {
				return err
			}
			if err := txn.Delete(emailKey(current.Email)); err != nil {
				return err
			}
		}
		return txn.Set(userKey(user.ID), data)
	})
}

// SoftDelete stamps the record and releases its email index entry.
// The record itself is never removed.
func (r *UserRepository) SoftDelete(id uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		stored, err := r.readUser(txn, id)
		if err != nil {
			return err
		}
		if stored.DeletedAt != nil {
			return nil // already deleted, nothing to do
		}
		now := time.Now().UTC()
		stored.DeletedAt = &now
		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		if err := txn.Set(userKey(id), data); err != nil {
			return err
		}
		return txn.Delete(emailKey(stored.Email))
	})
}

func (r *UserRepository) readUser(txn *badger.Txn, id uuid.UUID) (storedUser, error) {
	item, err := txn.Get(userKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return storedUser{}, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return storedUser{}, err
	}
	var stored storedUser
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &stored)
	})
	return stored, err
}

func (r *UserRepository) claimEmail(txn *badger.Txn, user domain.User) error {
	item, err := txn.Get(emailKey(user.Email))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return txn.Set(emailKey(user.Email), []byte(user.ID.String()))
	}
	if err != nil {
		return err
	}
	var holder string
	if err := item.Value(func(val []byte) error {
		holder = string(val)
		return nil
	}); err != nil {
		return err
	}
	if holder != user.ID.String() {
		return fmt.Errorf("%w: email %q already in use", apperrors.ErrValidation, user.Email)
	}
	return nil
}

func fromUser(user domain.User) storedUser {
	return storedUser{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Phone:     user.Phone,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
		DeletedAt: user.DeletedAt,
	}
}

func toUser(stored storedUser) domain.User {
	return domain.User{
		ID:        stored.ID,
		Email:     stored.Email,
		FirstName: stored.FirstName,
		LastName:  stored.LastName,
		Phone:     stored.Phone,
		Role:      domain.Role(stored.Role),
		CreatedAt: stored.CreatedAt,
		DeletedAt: stored.DeletedAt,
	}
}
