package store

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetAbsent(t *testing.T) {
	s := NewMemoryStore()
	doc, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestMemoryStoreCommit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Transact(ctx, "k", func(doc []byte) ([]byte, error) {
		require.Nil(t, doc, "document should not exist yet")
		return []byte("v1"), nil
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), doc)
}

func TestMemoryStoreReadOnly(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Transact(ctx, "k", func([]byte) ([]byte, error) {
		return []byte("v1"), nil
	}))

	// Returning nil commits nothing.
	require.NoError(t, s.Transact(ctx, "k", func(doc []byte) ([]byte, error) {
		assert.Equal(t, []byte("v1"), doc)
		return nil, nil
	}))

	doc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), doc)
}

func TestMemoryStoreAbortOnError(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transact(ctx, "k", func([]byte) ([]byte, error) {
		return []byte("never"), boom
	})
	require.ErrorIs(t, err, boom)

	doc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, doc, "aborted transaction must not write")
}

func TestMemoryStoreConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Transact(ctx, "k", func([]byte) ([]byte, error) {
		return []byte("base"), nil
	}))

	// Interleave a writer between snapshot and commit.
	err := s.Transact(ctx, "k", func(doc []byte) ([]byte, error) {
		require.NoError(t, s.Transact(ctx, "k", func([]byte) ([]byte, error) {
			return []byte("interloper"), nil
		}))
		return []byte("stale write"), nil
	})
	require.ErrorIs(t, err, ErrConflict)

	doc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("interloper"), doc, "stale write must be discarded")
}

// TestMemoryStoreNoLostUpdates hammers one key with concurrent increments;
// every committed transaction must be a transition from some consistent prior
// state, so with conflict-retry the final count equals the attempt count.
func TestMemoryStoreNoLostUpdates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	const workers, perWorker = 8, 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				for {
					err := s.Transact(ctx, "counter", func(doc []byte) ([]byte, error) {
						n := 0
						if doc != nil {
							n, _ = strconv.Atoi(string(doc))
						}
						return []byte(strconv.Itoa(n + 1)), nil
					})
					if err == nil {
						break
					}
					if !errors.Is(err, ErrConflict) {
						t.Errorf("unexpected error: %v", err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	doc, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(workers*perWorker), string(doc))
}
