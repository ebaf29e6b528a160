package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"smartline/internal/blobstore"
)

// Snapshot is the flat backend: each entity collection lives in the blob
// store as one JSON array, replaced wholesale on every write. A concurrent
// writer that read the same blob can clobber this writer's change; callers
// accept that in exchange for having no engine to run.
type Snapshot struct {
	blobs blobstore.Store
}

func NewSnapshot(blobs blobstore.Store) *Snapshot {
	return &Snapshot{blobs: blobs}
}

func snapshotKey(e Entity) string { return "snapshot/" + string(e) }

func (s *Snapshot) load(e Entity) ([]Record, error) {
	blob, err := s.blobs.Get(snapshotKey(e))
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return records, nil
}

func (s *Snapshot) store(e Entity, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	blob, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.blobs.Put(snapshotKey(e), blob)
}

func (s *Snapshot) Read(ctx context.Context, entity Entity) ([]Record, error) {
	records, err := s.load(entity)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Entity: entity, Err: err}
	}
	return records, nil
}

func (s *Snapshot) Write(ctx context.Context, m Mutation) error {
	entity := m.Entity()
	records, err := s.load(entity)
	if err != nil {
		return &PersistenceError{Op: "write", Entity: entity, Err: err}
	}

	key := KeyField(entity)
	switch op := m.(type) {
	case Insert:
		records = append(records, op.Record)
	case Update:
		for _, r := range records {
			if r[key] == op.ID {
				for f, v := range op.Fields {
					r[f] = v
				}
			}
		}
	case Delete:
		kept := records[:0]
		for _, r := range records {
			if r[key] != op.ID {
				kept = append(kept, r)
			}
		}
		records = kept
	default:
		return &PersistenceError{Op: "write", Entity: entity, Err: fmt.Errorf("unsupported mutation %T", m)}
	}

	if err := s.store(entity, records); err != nil {
		return &PersistenceError{Op: "write", Entity: entity, Err: err}
	}
	return nil
}

func (s *Snapshot) Close() error { return s.blobs.Close() }
