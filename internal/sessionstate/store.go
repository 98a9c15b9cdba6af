// Package sessionstate keeps small per-session UI state in BadgerDB.
//
// State is keyed by the auth session id and expires with the session,
// so nothing here has to be cleaned up when a session is purged.
// The only state today is the recent-search list.
package sessionstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/diary-server/internal/domain"
)

const (
	keyPrefix    = "session:"
	recentSuffix = ":recent"

	maxConflictRetries = 3
)

// Options configures a Store.
type Options struct {
	Path     string        // Directory for the Badger files; ignored when InMemory
	InMemory bool          // Keep everything in memory (tests)
	TTL      time.Duration // Lifetime of each key; 0 keeps keys forever
	Logger   *slog.Logger
}

// Store wraps a Badger database holding per-session state.
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// Open opens or creates the state database.
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil // Disable Badger's internal logging
	bopts.CompactL0OnClose = true

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Session state opened", "path", opts.Path, "in_memory", opts.InMemory)

	return &Store{db: db, ttl: opts.TTL, logger: logger}, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is open and readable.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("session state is closed")
	}
	return s.db.View(func(_ *badger.Txn) error { return nil })
}

// RecentSearches returns the session's recent queries, newest first.
// A session with no history yields an empty list.
func (s *Store) RecentSearches(_ context.Context, sessionID string) ([]string, error) {
	var list []string
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		list, err = readList(txn, recentKey(sessionID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// PushRecentSearch moves query to the front of the session's recent list,
// trimming it to domain.RecentSearchLimit. Returns the updated list.
// Read and write share one transaction; a conflicting write is retried.
func (s *Store) PushRecentSearch(_ context.Context, sessionID, query string) ([]string, error) {
	key := recentKey(sessionID)

	var (
		list []string
		err  error
	)
	for range maxConflictRetries {
		err = s.db.Update(func(txn *badger.Txn) error {
			current, err := readList(txn, key)
			if err != nil {
				return err
			}

			list = domain.PushRecent(current, query, domain.RecentSearchLimit)

			data, err := json.Marshal(list)
			if err != nil {
				return fmt.Errorf("failed to marshal recent searches: %w", err)
			}

			entry := badger.NewEntry(key, data)
			if s.ttl > 0 {
				entry = entry.WithTTL(s.ttl)
			}
			return txn.SetEntry(entry)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Clear removes every key belonging to the session.
func (s *Store) Clear(_ context.Context, sessionID string) error {
	prefix := []byte(keyPrefix + sessionID + ":")

	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// CollectGarbage reclaims value-log space left by expired keys.
// Returns the number of files rewritten.
func (s *Store) CollectGarbage() int {
	n := 0
	for {
		if err := s.db.RunValueLogGC(0.5); err != nil {
			// ErrNoRewrite means nothing left to collect; in-memory stores
			// report ErrGCInMemoryMode.
			if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
				s.logger.Warn("Session state GC failed", "error", err)
			}
			return n
		}
		n++
	}
}

func recentKey(sessionID string) []byte {
	return []byte(keyPrefix + sessionID + recentSuffix)
}

func readList(txn *badger.Txn, key []byte) ([]string, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var list []string
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &list)
	})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}
