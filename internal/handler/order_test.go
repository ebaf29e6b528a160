package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartline/internal/blobstore"
	"smartline/internal/model"
	"smartline/internal/mw"
	"smartline/internal/service"
	"smartline/internal/storage"
)

type stubParser struct {
	orders []model.ParsedOrder
}

func (s *stubParser) ParseOrders(ctx context.Context, text string) ([]model.ParsedOrder, error) {
	return s.orders, nil
}

func (s *stubParser) ParsePrices(ctx context.Context, text string) ([]model.ParsedPrice, error) {
	return nil, nil
}

type env struct {
	pipeline *service.Pipeline
	catalog  *service.CatalogService
	ledger   *service.LedgerService
}

func newEnv(t *testing.T, parser service.TextParser) env {
	t.Helper()
	store := storage.NewSnapshot(blobstore.NewMemory())
	catalog := service.NewCatalogService(store)
	ledger := service.NewLedgerService(store)
	messages := service.NewMessageService(store)
	return env{
		pipeline: service.NewPipeline(parser, catalog, ledger, messages, nil),
		catalog:  catalog,
		ledger:   ledger,
	}
}

func asPrincipal(r *http.Request, p model.UserProfile) *http.Request {
	return r.WithContext(mw.WithPrincipal(r.Context(), p))
}

var memberLin = model.UserProfile{Username: "lin", Role: model.RoleMember, Address: "12 Elm St"}

func TestIngestOrderHandlerCreatesOrders(t *testing.T) {
	parser := &stubParser{orders: []model.ParsedOrder{{
		Region: "North",
		Items:  []model.OrderItem{{Name: "Cabbage", Quantity: 2}},
	}}}
	e := newEnv(t, parser)

	record, err := e.catalog.Upsert(context.Background(), "Cabbage", "North", 50)
	require.NoError(t, err)
	require.NoError(t, e.catalog.SetAvailability(context.Background(), record.ID, true))

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"text":"2 cabbages"}`))
	w := httptest.NewRecorder()
	IngestOrderHandler(e.pipeline)(w, asPrincipal(req, memberLin))

	require.Equal(t, http.StatusCreated, w.Code)
	var orders []model.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&orders))
	require.Len(t, orders, 1)
	assert.Equal(t, 100.0, orders[0].TotalAmount)
}

func TestIngestOrderHandlerMapsRejection(t *testing.T) {
	parser := &stubParser{orders: []model.ParsedOrder{{
		Region: "North",
		Items:  []model.OrderItem{{Name: "Truffle", Quantity: 1}},
	}}}
	e := newEnv(t, parser)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"text":"truffle"}`))
	w := httptest.NewRecorder()
	IngestOrderHandler(e.pipeline)(w, asPrincipal(req, memberLin))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Truffle")
}

func TestIngestOrderHandlerRequiresPrincipal(t *testing.T) {
	e := newEnv(t, &stubParser{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"text":"hi"}`))
	w := httptest.NewRecorder()
	IngestOrderHandler(e.pipeline)(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListOrdersHandlerNoContent(t *testing.T) {
	e := newEnv(t, &stubParser{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	w := httptest.NewRecorder()
	ListOrdersHandler(e.ledger)(w, asPrincipal(req, memberLin))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestOrderMutationsRequireAdmin(t *testing.T) {
	e := newEnv(t, &stubParser{})

	req := httptest.NewRequest(http.MethodPatch, "/api/orders/o1/status", strings.NewReader(`{"status":"completed"}`))
	w := httptest.NewRecorder()
	SetOrderStatusHandler(e.ledger)(w, asPrincipal(req, memberLin))

	assert.Equal(t, http.StatusForbidden, w.Code)
}
