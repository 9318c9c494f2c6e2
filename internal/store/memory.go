package store

import (
	"context"
	"sync"
)

type memoryDoc struct {
	data    []byte
	version uint64
}

// MemoryStore is an in-process Store with the same optimistic semantics as
// the Redis adapter: the transaction function runs outside the lock against a
// snapshot, and the commit fails with ErrConflict if the document version
// moved in the meantime. Used by tests and local development.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]memoryDoc
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]memoryDoc)}
}

// Transact implements Store.
func (s *MemoryStore) Transact(ctx context.Context, key string, fn TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	cur := s.docs[key]
	var snapshot []byte
	if cur.data != nil {
		snapshot = append([]byte(nil), cur.data...)
	}
	s.mu.Unlock()

	next, err := fn(snapshot)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[key].version != cur.version {
		return ErrConflict
	}
	s.docs[key] = memoryDoc{
		data:    append([]byte(nil), next...),
		version: cur.version + 1,
	}
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), doc.data...), nil
}
