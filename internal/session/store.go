// Package session keeps one register session per front end and runs cart
// operations against it.
package session

import (
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xenking/scankart/internal/domain/cart"
	"github.com/xenking/scankart/internal/domain/product"
)

var (
	// ErrNotFound is returned for unknown, closed or expired sessions.
	ErrNotFound = errors.New("session not found")
	// ErrEmptyCart is returned when a receipt is requested for an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
)

// Session is a single register. It owns its cart; all access goes through
// the session lock.
type Session struct {
	ID     string
	Opened time.Time

	mu   sync.Mutex
	cart *cart.Cart
}

func newSession(catalog product.Catalog, now time.Time) *Session {
	return &Session{
		ID:     uuid.New().String(),
		Opened: now,
		cart:   cart.New(catalog),
	}
}

// Store holds open sessions. Sessions idle for longer than the TTL are
// evicted, and the least recently used one is evicted when full.
type Store struct {
	lru *expirable.LRU[string, *Session]
}

// NewStore creates a Store holding at most size sessions. A zero ttl
// disables expiry.
func NewStore(size int, ttl time.Duration) *Store {
	return &Store{
		lru: expirable.NewLRU[string, *Session](size, nil, ttl),
	}
}

// Put adds or replaces a session.
func (s *Store) Put(sess *Session) {
	s.lru.Add(sess.ID, sess)
}

// Get returns the session and resets its idle timer.
func (s *Store) Get(id string) (*Session, error) {
	sess, ok := s.lru.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	s.lru.Add(id, sess)
	return sess, nil
}

// Delete removes the session. It reports whether the session was present.
func (s *Store) Delete(id string) bool {
	return s.lru.Remove(id)
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	return s.lru.Len()
}
