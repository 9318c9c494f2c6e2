// Package store defines the transactional key-document contract the session
// engines run against, plus a Redis-backed adapter and an in-memory adapter
// for tests. The contract is optimistic: a transaction reads a snapshot of
// one document, computes, and commits conditionally; if the document changed
// underneath it the whole transaction aborts with ErrConflict and nothing is
// written.
package store

import (
	"context"
	"errors"
)

// ErrConflict is returned when a transaction aborts because the watched
// document changed between snapshot and commit. Callers retry via the retry
// policy; it is never a business failure.
var ErrConflict = errors.New("store: transaction conflict")

// TxFunc computes a document transition. doc is the snapshot (nil when the
// document does not exist). Returning a non-nil byte slice commits it as the
// new document; returning (nil, nil) commits nothing. Any error aborts the
// transaction and is propagated unchanged.
type TxFunc func(doc []byte) ([]byte, error)

// Store is the transactional document store consumed by the session engines.
type Store interface {
	// Transact runs fn as one atomic read-modify-write against key.
	Transact(ctx context.Context, key string, fn TxFunc) error
	// Get returns the current document, or (nil, nil) when absent.
	Get(ctx context.Context, key string) ([]byte, error)
}
