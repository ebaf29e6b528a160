package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartline/internal/model"
)

func seedOrder(t *testing.T, ledger *LedgerService, o model.Order) {
	t.Helper()
	if o.Status == "" {
		o.Status = model.StatusPending
	}
	require.NoError(t, ledger.Create(context.Background(), o))
}

func TestListIsRoleAware(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedgerService(newTestGateway())
	seedOrder(t, ledger, model.Order{ID: "1", UserName: "lin", Address: "12 Elm St", Timestamp: 1})
	seedOrder(t, ledger, model.Order{ID: "2", UserName: "chen", Address: "7 Oak Ave", Timestamp: 2})

	mine, err := ledger.List(ctx, Filter{Actor: member})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "lin", mine[0].UserName)

	all, err := ledger.List(ctx, Filter{Actor: admin})
	require.NoError(t, err)
	assert.Len(t, all, 2, "admin bypasses ownership filters")
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedgerService(newTestGateway())
	seedOrder(t, ledger, model.Order{ID: "old", UserName: "lin", Timestamp: 1})
	seedOrder(t, ledger, model.Order{ID: "new", UserName: "lin", Timestamp: 2})

	orders, err := ledger.List(ctx, Filter{Actor: admin})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "new", orders[0].ID)
}

func TestListSearchMatchesNameAndAddress(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedgerService(newTestGateway())
	seedOrder(t, ledger, model.Order{ID: "1", UserName: "Lin", Address: "12 Elm St", Timestamp: 1})
	seedOrder(t, ledger, model.Order{ID: "2", UserName: "Chen", Address: "7 Oak Ave", Timestamp: 2})

	byName, err := ledger.List(ctx, Filter{Actor: admin, Search: "lin"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "1", byName[0].ID)

	byAddress, err := ledger.List(ctx, Filter{Actor: admin, Search: "oak"})
	require.NoError(t, err)
	require.Len(t, byAddress, 1)
	assert.Equal(t, "2", byAddress[0].ID)
}

func TestListFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedgerService(newTestGateway())
	seedOrder(t, ledger, model.Order{ID: "1", UserName: "lin", Timestamp: 1})
	seedOrder(t, ledger, model.Order{ID: "2", UserName: "lin", Status: model.StatusCompleted, Timestamp: 2})

	pending, err := ledger.List(ctx, Filter{Actor: admin, Status: model.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "1", pending[0].ID)
}

func TestScalarMutations(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedgerService(newTestGateway())
	seedOrder(t, ledger, model.Order{
		ID:          "1",
		UserName:    "lin",
		Items:       []model.OrderItem{{Name: "Cabbage", Quantity: 2, Price: 50}},
		TotalAmount: 100,
		Timestamp:   1,
	})

	require.NoError(t, ledger.SetStatus(ctx, "1", model.StatusCompleted))
	require.NoError(t, ledger.SetFlag(ctx, "1", true))

	orders, err := ledger.List(ctx, Filter{Actor: admin})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, model.StatusCompleted, orders[0].Status)
	assert.True(t, orders[0].IsFlagged)
	assert.Equal(t, 100.0, orders[0].TotalAmount, "scalar mutations leave the rest of the order alone")
	assert.Len(t, orders[0].Items, 1)

	require.NoError(t, ledger.Delete(ctx, "1"))
	orders, err = ledger.List(ctx, Filter{Actor: admin})
	require.NoError(t, err)
	assert.Empty(t, orders)
}
