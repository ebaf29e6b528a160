package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartline/internal/storage"
)

func postMutation(t *testing.T, srv *httptest.Server, entity string, m storage.WireMutation) *http.Response {
	t.Helper()
	body, err := json.Marshal(m)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/store/"+entity, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestServerRejectsUnknownEntity(t *testing.T) {
	srv := httptest.NewServer(NewServer(NewMemStore()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/store/invoices")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerInsertUpdateDelete(t *testing.T) {
	srv := httptest.NewServer(NewServer(NewMemStore()).Handler())
	defer srv.Close()

	resp := postMutation(t, srv, "prices", storage.WireMutation{
		Op:     storage.WireInsert,
		Record: storage.Record{"id": "p1", "itemName": "Cabbage", "price": 50.0},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postMutation(t, srv, "prices", storage.WireMutation{
		Op:     storage.WireUpdate,
		ID:     "p1",
		Fields: map[string]any{"price": 60.0},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(srv.URL + "/api/store/prices")
	require.NoError(t, err)
	defer getResp.Body.Close()
	var docs []Doc
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&docs))
	require.Len(t, docs, 1)
	assert.Equal(t, 60.0, docs[0]["price"])
	assert.Equal(t, "Cabbage", docs[0]["itemName"], "update merges, not replaces")

	resp = postMutation(t, srv, "prices", storage.WireMutation{Op: storage.WireDelete, ID: "p1"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err = http.Get(srv.URL + "/api/store/prices")
	require.NoError(t, err)
	defer getResp.Body.Close()
	docs = nil
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&docs))
	assert.Empty(t, docs)
}

func TestServerRejectsBadWrites(t *testing.T) {
	srv := httptest.NewServer(NewServer(NewMemStore()).Handler())
	defer srv.Close()

	// Insert without the key field.
	resp := postMutation(t, srv, "orders", storage.WireMutation{
		Op:     storage.WireInsert,
		Record: storage.Record{"userName": "lin"},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Update without an id.
	resp = postMutation(t, srv, "orders", storage.WireMutation{
		Op:     storage.WireUpdate,
		Fields: map[string]any{"status": "completed"},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown operation tag.
	resp = postMutation(t, srv, "orders", storage.WireMutation{Op: "drop"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPebbleStoreListIsPerEntity(t *testing.T) {
	store, err := OpenPebbleStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "orders", "o1", Doc{"id": "o1"}))
	require.NoError(t, store.Put(ctx, "prices", "p1", Doc{"id": "p1"}))

	orders, err := store.List(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0]["id"])

	require.NoError(t, store.Merge(ctx, "orders", "o1", map[string]any{"status": "completed"}))
	orders, err = store.List(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "completed", orders[0]["status"])

	require.NoError(t, store.Delete(ctx, "orders", "o1"))
	orders, err = store.List(ctx, "orders")
	require.NoError(t, err)
	assert.Empty(t, orders)
}
