package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/jaekwang-park/taskscribe/internal/model"
)

type BadgerUserRepository struct {
	db *badger.DB
}

func NewBadgerUser(db *badger.DB) *BadgerUserRepository {
	return &BadgerUserRepository{db: db}
}

// userRecord is the stored form of a user. model.User hides the password
// hash from JSON, so it cannot be persisted directly.
type userRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u userRecord) toModel() model.User {
	return model.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r *BadgerUserRepository) Create(_ context.Context, user model.User) (model.User, error) {
	now := time.Now().UTC()
	rec := userRecord{
		ID:           uuid.NewString(),
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := update(r.db, func(txn *badger.Txn) error {
		_, err := txn.Get(userEmailKey(rec.Email))
		if err == nil {
			return fmt.Errorf("email %q: %w", rec.Email, ErrDuplicate)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check email: %w", err)
		}

		if err := txn.Set(userEmailKey(rec.Email), []byte(rec.ID)); err != nil {
			return err
		}
		return setJSON(txn, userIDKey(rec.ID), rec)
	})
	if err != nil {
		return model.User{}, err
	}
	return rec.toModel(), nil
}

func (r *BadgerUserRepository) GetByEmail(_ context.Context, email string) (model.User, error) {
	var rec userRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userEmailKey(email))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to read email index: %w", err)
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, userIDKey(string(id)), &rec)
	})
	if err != nil {
		return model.User{}, err
	}
	return rec.toModel(), nil
}

func (r *BadgerUserRepository) GetByID(_ context.Context, userID string) (model.User, error) {
	var rec userRecord
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userIDKey(userID), &rec)
	})
	if err != nil {
		return model.User{}, err
	}
	return rec.toModel(), nil
}

var _ UserRepository = (*BadgerUserRepository)(nil)
