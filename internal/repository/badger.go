package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const maxTxnRetries = 5

// Key layout. Tasks live under their owner's prefix so a lookup with the
// wrong owner simply misses.
//
//	user/id/<userID>       -> user record (json)
//	user/email/<email>     -> userID
//	task/<userID>/<taskID> -> model.Task (json)
func userIDKey(userID string) []byte { return []byte("user/id/" + userID) }
func userEmailKey(email string) []byte { return []byte("user/email/" + email) }
func taskPrefix(userID string) []byte { return []byte("task/" + userID + "/") }
func taskKey(userID, taskID string) []byte { return append(taskPrefix(userID), taskID...) }

// update runs fn in a read-write transaction, retrying when a concurrent
// transaction committed a conflicting write first.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for range maxTxnRetries {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction retries exhausted: %w", err)
}

func getJSON(txn *badger.Txn, key []byte, dst any) error {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, dst); err != nil {
			return fmt.Errorf("failed to decode %s: %w", key, err)
		}
		return nil
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return txn.Set(key, data)
}
