// Package session owns the client's authentication state: one token plus the
// profile it belongs to, persisted locally so CLI invocations stay logged in.
// The store is the single owner of this state: it is loaded at startup,
// handed to the api client as its token source, and cleared on logout or 401.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/alex-user-go/shipcompare/internal/api"
)

var sessionBucket = []byte("session")

var currentKey = []byte("current")

// Session is a stored token and the profile it authenticates.
type Session struct {
	Token string   `json:"token"`
	User  api.User `json:"user"`
}

// Store persists the session in a bbolt database and mirrors it in memory so
// Token lookups on the request path never touch disk.
type Store struct {
	db *bolt.DB

	mu      sync.RWMutex
	current *Session
}

// Open opens (or creates) the session database at path and loads any stored
// session into memory.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}

	s := &Store{db: db}

	err = db.Update(func(tx *bolt.Tx) error {
		b, createErr := tx.CreateBucketIfNotExists(sessionBucket)
		if createErr != nil {
			return createErr
		}
		data := b.Get(currentKey)
		if data == nil {
			return nil
		}
		var sess Session
		if unmarshalErr := json.Unmarshal(data, &sess); unmarshalErr != nil {
			// A corrupt session is discarded rather than blocking startup.
			return b.Delete(currentKey)
		}
		s.current = &sess
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("loading session: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Current returns a copy of the stored session, or nil when logged out.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	sess := *s.current
	return &sess
}

// Save stores a new session, replacing any previous one.
func (s *Store) Save(sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(currentKey, data)
	})
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	return nil
}

// Clear removes the stored session.
func (s *Store) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete(currentKey)
	})
	if err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return nil
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Invalidate implements api.TokenSource: called by the api client when the
// backend rejects the token. The in-memory copy is dropped even if the disk
// write fails, so no further request carries the dead token.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	_ = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete(currentKey)
	})
}
