// Package badgerdb opens embedded BadgerDB instances for the task store and
// the client session store.
package badgerdb

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// Config holds configuration for a BadgerDB instance.
type Config struct {
	// Path is the directory for database files. Ignored when InMemory is true.
	Path string

	// InMemory keeps all data in RAM. Data is lost on Close.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives BadgerDB's internal log lines. Nil disables them.
	Logger *slog.Logger
}

// InMemoryConfig returns a configuration for tests and throwaway local runs.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type slogAdapter struct {
	logger *slog.Logger
}

func (l *slogAdapter) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *slogAdapter) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *slogAdapter) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *slogAdapter) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens a database with the given configuration, creating the directory
// when it does not exist. The caller must Close the returned database.
func Open(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&slogAdapter{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}

// OpenInMemory opens an in-memory database.
func OpenInMemory() (*badger.DB, error) {
	return Open(InMemoryConfig())
}
