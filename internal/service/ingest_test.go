package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartline/internal/model"
)

// fakeParser satisfies TextParser without a network round trip.
type fakeParser struct {
	orders []model.ParsedOrder
	prices []model.ParsedPrice
	fail   bool
}

func (f *fakeParser) ParseOrders(ctx context.Context, text string) ([]model.ParsedOrder, error) {
	if f.fail {
		return nil, &ParsingError{Err: errors.New("service unreachable")}
	}
	return f.orders, nil
}

func (f *fakeParser) ParsePrices(ctx context.Context, text string) ([]model.ParsedPrice, error) {
	if f.fail {
		return nil, &ParsingError{Err: errors.New("service unreachable")}
	}
	return f.prices, nil
}

type pipelineEnv struct {
	pipeline *Pipeline
	catalog  *CatalogService
	ledger   *LedgerService
	messages *MessageService
}

func newPipelineEnv(t *testing.T, parser TextParser, hints map[string]string) pipelineEnv {
	t.Helper()
	store := newTestGateway()
	catalog := NewCatalogService(store)
	ledger := NewLedgerService(store)
	messages := NewMessageService(store)
	return pipelineEnv{
		pipeline: NewPipeline(parser, catalog, ledger, messages, hints),
		catalog:  catalog,
		ledger:   ledger,
		messages: messages,
	}
}

func seedPrice(t *testing.T, catalog *CatalogService, item, region string, price float64, available bool) {
	t.Helper()
	record, err := catalog.Upsert(context.Background(), item, region, price)
	require.NoError(t, err)
	if available {
		require.NoError(t, catalog.SetAvailability(context.Background(), record.ID, true))
	}
}

var member = model.UserProfile{Username: "lin", Role: model.RoleMember, Address: "12 Elm St"}
var admin = model.UserProfile{Username: "boss", Role: model.RoleAdmin}

func TestMemberOrderDropsUnavailableItems(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{orders: []model.ParsedOrder{{
		Region: "North",
		Items: []model.OrderItem{
			{Name: "Cabbage", Quantity: 2},
			{Name: "Truffle", Quantity: 1},
		},
	}}}
	env := newPipelineEnv(t, parser, nil)
	seedPrice(t, env.catalog, "Cabbage", "North", 50, true)
	seedPrice(t, env.catalog, "Truffle", "North", 900, false)

	orders, err := env.pipeline.ProcessMessage(ctx, member, "2 cabbages and a truffle")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1, "unavailable item dropped")
	assert.Equal(t, "Cabbage", orders[0].Items[0].Name)
	assert.Equal(t, 100.0, orders[0].TotalAmount, "total computed from surviving items only")
	assert.Equal(t, "lin", orders[0].UserName, "members own their orders")
}

func TestMemberOrderAllUnavailableRejectsMessage(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{orders: []model.ParsedOrder{
		{Region: "North", Items: []model.OrderItem{{Name: "Cabbage", Quantity: 1}}},
		{Region: "North", Items: []model.OrderItem{{Name: "Truffle", Quantity: 1}}},
	}}
	env := newPipelineEnv(t, parser, nil)
	seedPrice(t, env.catalog, "Cabbage", "North", 50, true)

	_, err := env.pipeline.ProcessMessage(ctx, member, "cabbage, truffle")

	var notOffered *ItemNotOfferedError
	require.ErrorAs(t, err, &notOffered)
	assert.Equal(t, "Truffle", notOffered.Item, "error names the rejected item")

	// All-or-nothing: the valid block must not have been persisted either.
	orders, err := env.ledger.List(ctx, Filter{Actor: admin})
	require.NoError(t, err)
	assert.Empty(t, orders, "ledger unchanged after rejection")
}

func TestAdminOrdersAnyItem(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{orders: []model.ParsedOrder{{
		UserName: "Mrs. Chen",
		Address:  "7 Oak Ave",
		Region:   "South",
		Items:    []model.OrderItem{{Name: "Truffle", Quantity: 1}},
	}}}
	env := newPipelineEnv(t, parser, nil)
	seedPrice(t, env.catalog, "Truffle", model.RegionAll, 900, false)

	orders, err := env.pipeline.ProcessMessage(ctx, admin, "truffle for mrs chen")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Mrs. Chen", orders[0].UserName, "admin orders keep the parsed addressee")
	assert.Equal(t, 900.0, orders[0].TotalAmount, "wildcard price applies in other regions")
}

func TestAdminOrderWithoutNameGetsPlaceholder(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{orders: []model.ParsedOrder{{
		Region: "North",
		Items:  []model.OrderItem{{Name: "Cabbage", Quantity: 1}},
	}}}
	env := newPipelineEnv(t, parser, nil)

	orders, err := env.pipeline.ProcessMessage(ctx, admin, "one cabbage")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "customer", orders[0].UserName)
}

func TestExplicitPriceWinsOverCatalog(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{orders: []model.ParsedOrder{{
		Region: "North",
		Items:  []model.OrderItem{{Name: "Cabbage", Quantity: 3, Price: 45}},
	}}}
	env := newPipelineEnv(t, parser, nil)
	seedPrice(t, env.catalog, "Cabbage", "North", 50, true)

	orders, err := env.pipeline.ProcessMessage(ctx, member, "3 cabbages at 45")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 45.0, orders[0].Items[0].Price)
	assert.Equal(t, 135.0, orders[0].TotalAmount)
}

func TestUnpricedItemKeepsZeroSentinel(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{orders: []model.ParsedOrder{{
		Region: "North",
		Items:  []model.OrderItem{{Name: "Kale", Quantity: 2}},
	}}}
	env := newPipelineEnv(t, parser, nil)

	orders, err := env.pipeline.ProcessMessage(ctx, admin, "2 kale")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 0.0, orders[0].Items[0].Price, "unknown items stay at the zero sentinel for manual pricing")
	assert.Equal(t, 0.0, orders[0].TotalAmount)
}

func TestAddressAndRegionResolution(t *testing.T) {
	hints := map[string]string{"Elm St": "North"}

	tests := []struct {
		name        string
		caller      model.UserProfile
		block       model.ParsedOrder
		wantAddress string
		wantRegion  string
	}{
		{
			name:        "block address and region win",
			caller:      member,
			block:       model.ParsedOrder{Address: "7 Oak Ave", Region: "South", Items: []model.OrderItem{{Name: "Cabbage", Quantity: 1}}},
			wantAddress: "7 Oak Ave",
			wantRegion:  "South",
		},
		{
			name:        "profile address fills in, keyword hints the region",
			caller:      member,
			block:       model.ParsedOrder{Items: []model.OrderItem{{Name: "Cabbage", Quantity: 1}}},
			wantAddress: "12 Elm St",
			wantRegion:  "North",
		},
		{
			name:        "no address anywhere",
			caller:      admin,
			block:       model.ParsedOrder{Items: []model.OrderItem{{Name: "Cabbage", Quantity: 1}}},
			wantAddress: AddressUnspecified,
			wantRegion:  model.RegionAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			parser := &fakeParser{orders: []model.ParsedOrder{tt.block}}
			env := newPipelineEnv(t, parser, hints)
			seedPrice(t, env.catalog, "Cabbage", model.RegionAll, 40, true)

			orders, err := env.pipeline.ProcessMessage(ctx, tt.caller, "one cabbage")
			require.NoError(t, err)
			require.Len(t, orders, 1)
			assert.Equal(t, tt.wantAddress, orders[0].Address)
			assert.Equal(t, tt.wantRegion, orders[0].Region)
		})
	}
}

func TestParsingFailurePersistsNothing(t *testing.T) {
	ctx := context.Background()
	env := newPipelineEnv(t, &fakeParser{fail: true}, nil)

	_, err := env.pipeline.ProcessMessage(ctx, member, "gibberish")

	var parseErr *ParsingError
	require.ErrorAs(t, err, &parseErr)

	orders, err := env.ledger.List(ctx, Filter{Actor: admin})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderTotalFrozenAgainstCatalogChanges(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{orders: []model.ParsedOrder{{
		Region: "North",
		Items:  []model.OrderItem{{Name: "Cabbage", Quantity: 1}},
	}}}
	env := newPipelineEnv(t, parser, nil)
	seedPrice(t, env.catalog, "Cabbage", "North", 40, true)

	orders, err := env.pipeline.ProcessMessage(ctx, member, "one cabbage")
	require.NoError(t, err)
	require.Equal(t, 40.0, orders[0].TotalAmount)

	_, err = env.catalog.Upsert(ctx, "Cabbage", "North", 60)
	require.NoError(t, err)

	listed, err := env.ledger.List(ctx, Filter{Actor: admin})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 40.0, listed[0].TotalAmount, "totals are frozen at creation")
	assert.Equal(t, 40.0, listed[0].Items[0].Price, "orders keep resolved copies, not live references")
}

func TestDeletedPriceLeavesOrderIntact(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{orders: []model.ParsedOrder{{
		Region: "North",
		Items:  []model.OrderItem{{Name: "Cabbage", Quantity: 2}},
	}}}
	env := newPipelineEnv(t, parser, nil)
	seedPrice(t, env.catalog, "Cabbage", "North", 50, true)

	_, err := env.pipeline.ProcessMessage(ctx, member, "2 cabbages")
	require.NoError(t, err)

	prices, err := env.catalog.List(ctx)
	require.NoError(t, err)
	require.NoError(t, env.catalog.Delete(ctx, prices[0].ID))

	listed, err := env.ledger.List(ctx, Filter{Actor: admin})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Len(t, listed[0].Items, 1)
	assert.Equal(t, "Cabbage", listed[0].Items[0].Name)
	assert.Equal(t, 100.0, listed[0].TotalAmount)
}

func TestConfirmationsLoggedPerOrder(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{orders: []model.ParsedOrder{
		{UserName: "A", Region: "North", Items: []model.OrderItem{{Name: "Cabbage", Quantity: 1}}},
		{UserName: "B", Region: "North", Items: []model.OrderItem{{Name: "Cabbage", Quantity: 2}}},
	}}
	env := newPipelineEnv(t, parser, nil)
	seedPrice(t, env.catalog, "Cabbage", "North", 50, true)

	orders, err := env.pipeline.ProcessMessage(ctx, admin, "cabbages for A and B")
	require.NoError(t, err)
	require.Len(t, orders, 2)

	log, err := env.messages.List(ctx)
	require.NoError(t, err)
	// Inbound message plus one confirmation per order.
	require.Len(t, log, 3)
	assert.Equal(t, model.SenderUser, log[0].Sender)
	assert.Contains(t, log[1].Text, "Cabbage x1")
	assert.Contains(t, log[2].Text, "Total: 100")
}

func TestFormatConfirmation(t *testing.T) {
	text := FormatConfirmation(model.Order{
		UserName:    "lin",
		Address:     "12 Elm St",
		Region:      "North",
		Items:       []model.OrderItem{{Name: "Cabbage", Quantity: 2, Price: 50}},
		TotalAmount: 100,
	})
	assert.Contains(t, text, "lin")
	assert.Contains(t, text, "- Cabbage x2 @ 50")
	assert.Contains(t, text, "Total: 100")
}
