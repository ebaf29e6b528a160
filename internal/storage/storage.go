// Package storage is the gateway between the domain services and the
// physical persistence backends. Every backend satisfies the same contract:
// a write followed by a read from the same caller observes the write, and no
// backend isolates concurrent writers, so callers re-read after mutating
// instead of patching cached state.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Entity names one persisted collection.
type Entity string

const (
	EntityOrders   Entity = "orders"
	EntityPrices   Entity = "prices"
	EntityUsers    Entity = "users"
	EntityMessages Entity = "messages"
)

// Entities lists every collection a backend must support.
var Entities = []Entity{EntityOrders, EntityPrices, EntityUsers, EntityMessages}

// KeyField returns the JSON field that identifies a record of the entity.
func KeyField(e Entity) string {
	if e == EntityUsers {
		return "username"
	}
	return "id"
}

// Record is one persisted document. Backends store records verbatim;
// filtering and ordering are the caller's responsibility.
type Record = map[string]any

// Mutation is a tagged write operation. Backends dispatch on the concrete
// type, never on payload text.
type Mutation interface {
	Entity() Entity
}

// Insert adds a whole new record.
type Insert struct {
	Kind   Entity
	Record Record
}

// Update replaces the named fields of the record identified by ID, leaving
// all other fields untouched.
type Update struct {
	Kind   Entity
	ID     string
	Fields map[string]any
}

// Delete removes the record identified by ID. Deleting an absent record is
// not an error.
type Delete struct {
	Kind Entity
	ID   string
}

func (m Insert) Entity() Entity { return m.Kind }
func (m Update) Entity() Entity { return m.Kind }
func (m Delete) Entity() Entity { return m.Kind }

// Gateway is the single logical persistence interface. Read returns the full
// collection for the entity.
type Gateway interface {
	Read(ctx context.Context, entity Entity) ([]Record, error)
	Write(ctx context.Context, m Mutation) error
	Close() error
}

// PersistenceError wraps any backend failure. The caller's in-memory view is
// left unchanged; recovery is re-submitting the operation once the backend
// is reachable again.
type PersistenceError struct {
	Op     string
	Entity Entity
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ToRecord converts a domain value into its document form.
func ToRecord(v any) (Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}

// Decode converts raw documents back into domain values.
func Decode[T any](records []Record) ([]T, error) {
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	out := make([]T, 0, len(records))
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return out, nil
}
