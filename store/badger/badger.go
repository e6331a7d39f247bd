// Package badger persists user belief records in an embedded BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tutormesh/tutormesh/core"
)

const keyPrefix = "user/"

// Options configures a Store.
type Options struct {
	// InMemory opens a throwaway database with no files on disk.
	InMemory bool
	// SyncWrites forces an fsync per write.
	SyncWrites bool
}

// Store is a durable UserModelStore backed by BadgerDB. Records are stored
// as JSON under user/<id>. Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the database at path.
func Open(path string, optFns ...func(o *Options)) (*Store, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	var dbOpts badger.Options
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if path == "" {
			return nil, errors.New("badger: path is required for a persistent store")
		}
		dbOpts = badger.DefaultOptions(path)
	}
	dbOpts = dbOpts.WithSyncWrites(opts.SyncWrites).WithLogger(nil)

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a throwaway store for tests and demos.
func OpenInMemory() (*Store, error) {
	return Open("", func(o *Options) { o.InMemory = true })
}

// Load returns the stored beliefs for a user, or (nil, nil) when the user
// is unknown.
func (s *Store) Load(_ context.Context, userID string) (*core.BayesianBeliefs, error) {
	var beliefs *core.BayesianBeliefs
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var b core.BayesianBeliefs
			if err := json.Unmarshal(val, &b); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			beliefs = &b
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("badger: load %s: %w", userID, err)
	}
	return beliefs, nil
}

// Save stores the beliefs record as JSON.
func (s *Store) Save(_ context.Context, beliefs *core.BayesianBeliefs) error {
	if beliefs.UserID == "" {
		return errors.New("badger: beliefs record without user id")
	}
	data, err := json.Marshal(beliefs)
	if err != nil {
		return fmt.Errorf("badger: encode %s: %w", beliefs.UserID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+beliefs.UserID), data)
	})
	if err != nil {
		return fmt.Errorf("badger: save %s: %w", beliefs.UserID, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
