package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleStore is a DocStore on a local PebbleDB directory, documents keyed
// "entity/id" and stored as JSON.
type PebbleStore struct {
	db *pebble.DB
}

func OpenPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func docKey(entity, id string) []byte {
	return []byte(entity + "/" + id)
}

func (p *PebbleStore) List(ctx context.Context, entity string) ([]Doc, error) {
	prefix := []byte(entity + "/")
	upper := append(append([]byte(nil), prefix...), 0xff)
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer it.Close()

	var docs []Doc
	for it.First(); it.Valid(); it.Next() {
		var doc Doc
		if err := json.Unmarshal(it.Value(), &doc); err != nil {
			return nil, fmt.Errorf("decode doc %s: %w", it.Key(), err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (p *PebbleStore) Put(ctx context.Context, entity, id string, doc Doc) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode doc: %w", err)
	}
	if err := p.db.Set(docKey(entity, id), b, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

func (p *PebbleStore) Merge(ctx context.Context, entity, id string, fields map[string]any) error {
	key := docKey(entity, id)
	v, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pebble get: %w", err)
	}
	var doc Doc
	err = json.Unmarshal(v, &doc)
	closer.Close()
	if err != nil {
		return fmt.Errorf("decode doc: %w", err)
	}
	for f, val := range fields {
		doc[f] = val
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode doc: %w", err)
	}
	if err := p.db.Set(key, b, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

func (p *PebbleStore) Delete(ctx context.Context, entity, id string) error {
	if err := p.db.Delete(docKey(entity, id), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete: %w", err)
	}
	return nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }
