package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type memoryRecord struct {
	value    []byte
	metadata []byte
}

// MemoryNamespace is an in-process Namespace. Keys are kept sorted so
// prefix listing is a binary search plus a linear scan.
type MemoryNamespace struct {
	mu      sync.RWMutex
	names   []string
	records map[string]memoryRecord
	closed  bool
}

// NewMemoryNamespace returns an empty in-memory namespace.
func NewMemoryNamespace() *MemoryNamespace {
	return &MemoryNamespace{records: make(map[string]memoryRecord)}
}

// Put stores value and metadata under key, replacing any previous record.
// It is used to seed the namespace; the HTTP surface never writes.
func (m *MemoryNamespace) Put(_ context.Context, key string, value, metadata []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, ok := m.records[key]; !ok {
		i := sort.SearchStrings(m.names, key)
		m.names = append(m.names, "")
		copy(m.names[i+1:], m.names[i:])
		m.names[i] = key
	}
	m.records[key] = memoryRecord{value: clone(value), metadata: clone(metadata)}
	return nil
}

// Get implements Namespace.
func (m *MemoryNamespace) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	rec, ok := m.records[key]
	if !ok || rec.value == nil {
		return nil, NotFoundError{Key: key}
	}
	return clone(rec.value), nil
}

// List implements Namespace.
func (m *MemoryNamespace) List(ctx context.Context, prefix string) ([]Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	var keys []Key
	for i := sort.SearchStrings(m.names, prefix); i < len(m.names); i++ {
		name := m.names[i]
		if !strings.HasPrefix(name, prefix) {
			break
		}
		keys = append(keys, Key{Name: name, Metadata: clone(m.records[name].metadata)})
	}
	return keys, nil
}

// Close implements Namespace.
func (m *MemoryNamespace) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
