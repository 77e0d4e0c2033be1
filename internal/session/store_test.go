package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s := NewStore(2, time.Hour)
	now := time.Now()

	a := newSession(mockCatalog{}, now)
	b := newSession(mockCatalog{}, now)
	c := newSession(mockCatalog{}, now)

	s.Put(a)
	s.Put(b)
	got, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	// a was used last, so b is evicted.
	s.Put(c)
	assert.Equal(t, 2, s.Len())
	_, err = s.Get(b.ID)
	require.ErrorIs(t, err, ErrNotFound)

	assert.True(t, s.Delete(a.ID))
	assert.False(t, s.Delete(a.ID))
}

func TestStoreExpiry(t *testing.T) {
	s := NewStore(10, 20*time.Millisecond)
	sess := newSession(mockCatalog{}, time.Now())
	s.Put(sess)

	time.Sleep(10 * time.Millisecond)
	_, err := s.Get(sess.ID)
	require.NoError(t, err, "touch resets the idle timer")

	time.Sleep(50 * time.Millisecond)
	_, err = s.Get(sess.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
