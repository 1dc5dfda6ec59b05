// Package kv is a small key-value abstraction with hierarchical keys, backed
// by BadgerDB on disk or a map in tests.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Separator joins key segments in storage.
const Separator = ":"

// Key is a hierarchical path, e.g. Key{"generation", "<id>"}. Segments must
// not contain Separator.
type Key []string

func (k Key) String() string {
	return strings.Join(k, Separator)
}

func parseKey(b []byte) Key {
	return Key(strings.Split(string(b), Separator))
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with path-based keys.
type Store interface {
	// Get returns ErrNotFound if key is not present.
	Get(ctx context.Context, key Key) ([]byte, error)
	Set(ctx context.Context, key Key, value []byte) error
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key Key) error
	// List yields entries under prefix in lexicographic key order. With
	// reverse set the order is descending.
	List(ctx context.Context, prefix Key, reverse bool) iter.Seq2[Entry, error]
	// BatchDelete atomically removes multiple keys.
	BatchDelete(ctx context.Context, keys []Key) error
	Close() error
}

// prefixBytes returns the encoded prefix followed by the separator so that
// "a:b" does not match "a:bc". An empty prefix matches everything.
func prefixBytes(prefix Key) []byte {
	if len(prefix) == 0 {
		return nil
	}
	return []byte(prefix.String() + Separator)
}
