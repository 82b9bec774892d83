package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/jaekwang-park/taskscribe/internal/model"
)

type BadgerTaskRepository struct {
	db  *badger.DB
	now func() time.Time
}

func NewBadgerTask(db *badger.DB) *BadgerTaskRepository {
	return &BadgerTaskRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *BadgerTaskRepository) Create(_ context.Context, task model.Task) (model.Task, error) {
	now := r.now()
	task.ID = uuid.NewString()
	task.CreatedAt = now
	task.UpdatedAt = now

	err := update(r.db, func(txn *badger.Txn) error {
		return setJSON(txn, taskKey(task.UserID, task.ID), task)
	})
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

func (r *BadgerTaskRepository) GetByID(_ context.Context, userID, taskID string) (model.Task, error) {
	if !validIDs(taskID) {
		return model.Task{}, ErrNotFound
	}

	var task model.Task
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, taskKey(userID, taskID), &task)
	})
	if err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// Update reads and rewrites the task inside one transaction. Badger aborts a
// transaction whose read set was overwritten by a concurrent commit, and the
// retry re-applies the patch on top of the winner's row.
func (r *BadgerTaskRepository) Update(_ context.Context, userID, taskID string, patch model.TaskPatch) (model.Task, error) {
	if !validIDs(taskID) {
		return model.Task{}, ErrNotFound
	}

	var updated model.Task
	err := update(r.db, func(txn *badger.Txn) error {
		var existing model.Task
		if err := getJSON(txn, taskKey(userID, taskID), &existing); err != nil {
			return err
		}
		updated = patch.Apply(existing)
		updated.UpdatedAt = r.now()
		return setJSON(txn, taskKey(userID, taskID), updated)
	})
	if err != nil {
		return model.Task{}, err
	}
	return updated, nil
}

func (r *BadgerTaskRepository) Delete(_ context.Context, userID, taskID string) error {
	if !validIDs(taskID) {
		return ErrNotFound
	}

	return update(r.db, func(txn *badger.Txn) error {
		key := taskKey(userID, taskID)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to read task: %w", err)
		}
		return txn.Delete(key)
	})
}

func (r *BadgerTaskRepository) List(_ context.Context, userID string) ([]model.Task, error) {
	tasks := []model.Task{}
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = taskPrefix(userID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var task model.Task
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &task)
			})
			if err != nil {
				return fmt.Errorf("failed to decode task: %w", err)
			}
			tasks = append(tasks, task)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

var _ TaskRepository = (*BadgerTaskRepository)(nil)
