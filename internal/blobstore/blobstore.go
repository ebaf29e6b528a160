// Package blobstore is the durable local store boundary: opaque blobs keyed
// by name, read and written in full. Storage backends use it for collection
// snapshots and whole-database exports.
package blobstore

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.New("blobstore: blob not found")

// Store holds named opaque blobs. Put replaces the whole blob; there are no
// partial updates.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Memory is an in-process Store for tests and throwaway runs.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.blobs[key] = v
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *Memory) Close() error { return nil }
