// Package proxy is the remote side of the storage gateway's HTTP backend:
// per-entity resource endpoints that translate tagged mutations into
// document-store operations.
package proxy

import (
	"context"
	"sort"
	"sync"
)

// Doc is one stored document.
type Doc = map[string]any

// DocStore holds documents per entity keyed by id. Update merges fields into
// the existing document; updating or deleting an absent id is a no-op.
type DocStore interface {
	List(ctx context.Context, entity string) ([]Doc, error)
	Put(ctx context.Context, entity, id string, doc Doc) error
	Merge(ctx context.Context, entity, id string, fields map[string]any) error
	Delete(ctx context.Context, entity, id string) error
	Close() error
}

// MemStore is an in-process DocStore for tests.
type MemStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]Doc // entity -> id -> doc
}

func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string]map[string]Doc)}
}

func (m *MemStore) List(ctx context.Context, entity string) ([]Doc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.docs[entity]))
	for id := range m.docs[entity] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Doc, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.docs[entity][id])
	}
	return out, nil
}

func (m *MemStore) Put(ctx context.Context, entity, id string, doc Doc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[entity] == nil {
		m.docs[entity] = make(map[string]Doc)
	}
	m.docs[entity][id] = doc
	return nil
}

func (m *MemStore) Merge(ctx context.Context, entity, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[entity][id]
	if !ok {
		return nil
	}
	for f, v := range fields {
		doc[f] = v
	}
	return nil
}

func (m *MemStore) Delete(ctx context.Context, entity, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[entity], id)
	return nil
}

func (m *MemStore) Close() error { return nil }
