package watchlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/autoinvest/backend/internal/botconfig"
	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/internal/memstore"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

func newService() (*Service, *memstore.Store) {
	store := memstore.New()
	return NewService(store.Watchlist(), "NSE", time.UTC, logger.NewNop()), store
}

func TestAddNormalizesAndValidates(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	item := &contracts.WatchlistItem{Symbol: " infy ", Action: contracts.ActionBuy, Quantity: 5}
	require.NoError(t, svc.Add(ctx, item))

	got, err := svc.Get(ctx, "INFY")
	require.NoError(t, err)
	assert.Equal(t, "NSE", got.Exchange)

	err = svc.Add(ctx, &contracts.WatchlistItem{Symbol: "TCS", Action: contracts.ActionSIP})
	assert.True(t, botconfig.IsValidationError(err))

	err = svc.Add(ctx, &contracts.WatchlistItem{Symbol: "INFY", Action: contracts.ActionHold})
	assert.True(t, errors.Is(err, contracts.ErrAlreadyExists))
}

func TestUpdateAndRemove(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, &contracts.WatchlistItem{Symbol: "INFY", Action: contracts.ActionHold}))

	require.NoError(t, svc.Update(ctx, &contracts.WatchlistItem{Symbol: "INFY", Action: contracts.ActionSell, Quantity: 10, AvgPrice: decimal.NewFromInt(100)}))
	got, _ := svc.Get(ctx, "INFY")
	assert.Equal(t, contracts.ActionSell, got.Action)

	require.NoError(t, svc.Remove(ctx, "INFY"))
	assert.ErrorIs(t, svc.Remove(ctx, "INFY"), contracts.ErrNotFound)
}

func TestImportUpsertsInOrder(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, &contracts.WatchlistItem{Symbol: "INFY", Action: contracts.ActionHold}))

	res, err := svc.Import(ctx, []botconfig.ItemDoc{
		{Symbol: "niftybees", Action: "SIP", SIPAmount: 5000, SIPFrequencyDays: 30},
		{Symbol: "infy", Action: "BUY", Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 1, Updated: 1}, res)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "INFY", items[0].Symbol)
	assert.Equal(t, contracts.ActionBuy, items[0].Action)
	assert.Equal(t, "NIFTYBEES", items[1].Symbol)
}

func TestImportValidatesBeforeWriting(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Import(ctx, []botconfig.ItemDoc{
		{Symbol: "A", Action: "HOLD"},
		{Symbol: "B", Action: "SIP"},
	})
	require.Error(t, err)

	_, err = svc.Import(ctx, []botconfig.ItemDoc{
		{Symbol: "A", Action: "HOLD"},
		{Symbol: "a", Action: "HOLD"},
	})
	require.Error(t, err)

	items, _ := svc.List(ctx)
	assert.Empty(t, items)
}
