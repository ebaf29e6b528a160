package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WireOp tags a mutation on the wire. The proxy dispatches on this tag; no
// side ever inspects payload text to decide what to do.
type WireOp string

const (
	WireInsert WireOp = "insert"
	WireUpdate WireOp = "update"
	WireDelete WireOp = "delete"
)

// WireMutation is the JSON body of a proxy write request.
type WireMutation struct {
	Op     WireOp         `json:"op"`
	Record Record         `json:"record,omitempty"`
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Remote forwards gateway operations to a storage proxy over HTTP, one
// resource endpoint per entity. It holds no local state; every read is a
// round trip.
type Remote struct {
	baseURL string
	client  *http.Client
}

func NewRemote(baseURL string) *Remote {
	return &Remote{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Remote) url(entity Entity) string {
	return fmt.Sprintf("%s/api/store/%s", r.baseURL, entity)
}

func (r *Remote) Read(ctx context.Context, entity Entity) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url(entity), nil)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Entity: entity, Err: err}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Entity: entity, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &PersistenceError{Op: "read", Entity: entity,
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)}
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, &PersistenceError{Op: "read", Entity: entity, Err: fmt.Errorf("decode response: %w", err)}
	}
	return records, nil
}

func (r *Remote) Write(ctx context.Context, m Mutation) error {
	entity := m.Entity()

	var wire WireMutation
	switch op := m.(type) {
	case Insert:
		wire = WireMutation{Op: WireInsert, Record: op.Record}
	case Update:
		wire = WireMutation{Op: WireUpdate, ID: op.ID, Fields: op.Fields}
	case Delete:
		wire = WireMutation{Op: WireDelete, ID: op.ID}
	default:
		return &PersistenceError{Op: "write", Entity: entity, Err: fmt.Errorf("unsupported mutation %T", m)}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return &PersistenceError{Op: "write", Entity: entity, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url(entity), bytes.NewReader(body))
	if err != nil {
		return &PersistenceError{Op: "write", Entity: entity, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return &PersistenceError{Op: "write", Entity: entity, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &PersistenceError{Op: "write", Entity: entity,
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody)}
	}
	return nil
}

func (r *Remote) Close() error { return nil }
