package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selltide/autoship/internal/catalog"
)

func TestSaveOrder_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := catalog.Order{
		OrderID:   "2889884335219692601",
		ItemID:    "item-1",
		BuyerID:   "buyer-1",
		SpecName:  "颜色",
		SpecValue: "蓝色",
		Quantity:  "2",
		Status:    "paid",
	}
	require.NoError(t, s.SaveOrder(ctx, want))

	got, err := s.OrderByID(ctx, want.OrderID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveOrder_RequiresOrderID(t *testing.T) {
	s := openTestStore(t)

	err := s.SaveOrder(context.Background(), catalog.Order{ItemID: "item-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order id is required")
}

func TestSaveOrder_UpsertFillsOnlyEmptyFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// First sighting: a thin event with only the item.
	require.NoError(t, s.SaveOrder(ctx, catalog.Order{
		OrderID: "o1",
		ItemID:  "item-1",
	}))

	// Second sighting fills spec and status but must not clobber item_id.
	require.NoError(t, s.SaveOrder(ctx, catalog.Order{
		OrderID:   "o1",
		ItemID:    "item-CHANGED",
		SpecName:  "颜色",
		SpecValue: "蓝色",
		Status:    "paid",
	}))

	got, err := s.OrderByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "item-1", got.ItemID)
	assert.Equal(t, "颜色", got.SpecName)
	assert.Equal(t, "蓝色", got.SpecValue)
	assert.Equal(t, "paid", got.Status)
}

func TestSaveOrder_UnknownStatusNeverDowngrades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveOrder(ctx, catalog.Order{OrderID: "o2", Status: "paid"}))
	require.NoError(t, s.SaveOrder(ctx, catalog.Order{OrderID: "o2"})) // defaults to "unknown"

	got, err := s.OrderByID(ctx, "o2")
	require.NoError(t, err)
	assert.Equal(t, "paid", got.Status)
}

func TestOrderByID_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.OrderByID(context.Background(), "never-seen")
	assert.ErrorIs(t, err, ErrNotFound)
}
