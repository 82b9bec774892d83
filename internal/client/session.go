package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/jaekwang-park/taskscribe/internal/model"
)

const (
	tokenKey = "token"
	userKey  = "user"
)

var ErrNoSession = errors.New("no stored session")

// Session is the identity persisted between client runs.
type Session struct {
	Token string
	User  model.UserSummary
}

// SessionStore persists the current session.
type SessionStore interface {
	Load() (Session, error)
	Save(s Session) error
	Clear() error
}

// BadgerSessionStore keeps the session under the fixed keys "token" and
// "user" in a Badger database.
type BadgerSessionStore struct {
	db *badger.DB
}

func NewBadgerSessionStore(db *badger.DB) *BadgerSessionStore {
	return &BadgerSessionStore{db: db}
}

// Load returns ErrNoSession when no token has been saved.
func (s *BadgerSessionStore) Load() (Session, error) {
	var sess Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tokenKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNoSession
			}
			return fmt.Errorf("failed to read token: %w", err)
		}
		token, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		sess.Token = string(token)

		item, err = txn.Get([]byte(userKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNoSession
			}
			return fmt.Errorf("failed to read user: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &sess.User)
		})
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *BadgerSessionStore) Save(sess Session) error {
	user, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(tokenKey), []byte(sess.Token)); err != nil {
			return err
		}
		return txn.Set([]byte(userKey), user)
	})
}

func (s *BadgerSessionStore) Clear() error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{tokenKey, userKey} {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ SessionStore = (*BadgerSessionStore)(nil)
