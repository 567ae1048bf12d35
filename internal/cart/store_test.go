package cart

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/quotecart/internal/catalog"
	"github.com/angelmondragon/quotecart/internal/pricing"
	"github.com/angelmondragon/quotecart/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
	"github.com/angelmondragon/quotecart/pkg/units"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func blanketDraft() Draft {
	return Draft{
		Type: enums.ProductTypeBlanket,
		Input: pricing.Input{
			Variant:   catalog.AreaPriced("bl-1", "Conti Air", d("500")),
			Machine:   "Heidelberg SM 74",
			Thickness: "1.95",
			Dimensions: &pricing.Dimensions{
				Length: units.Measurement{Value: d("1000"), Unit: units.Millimeter},
				Width:  units.Measurement{Value: d("2000"), Unit: units.Millimeter},
			},
			Surcharge:       catalog.AreaSurcharge("bar", d("50")),
			Quantity:        2,
			DiscountPercent: d("10"),
			GSTPercent:      d("18"),
		},
	}
}

func mpackDraft() Draft {
	return Draft{
		Type: enums.ProductTypeMPack,
		Input: pricing.Input{
			Variant:    catalog.UnitPriced("mp-1", "MPack", "100", "500x700", d("250")),
			Machine:    "Komori",
			Quantity:   10,
			GSTPercent: d("12"),
		},
	}
}

func newTestStore() *Store {
	seq := 0
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return NewStore(
		WithClock(func() time.Time { return clock }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("local-%d", seq)
		}),
	)
}

func TestAddPricesAndAppends(t *testing.T) {
	s := newTestStore()

	item, err := s.Add(blanketDraft(), AddOptions{})
	require.NoError(t, err)

	assert.Equal(t, "local-1", item.ID)
	assert.Equal(t, enums.SyncStateLocal, item.SyncState)
	assert.True(t, item.Breakdown.Total.Equal(d("2336.40")), "total %s", item.Breakdown.Total)
	assert.Equal(t, 1, s.Len())
}

func TestAddDuplicateThenForce(t *testing.T) {
	s := newTestStore()

	first, err := s.Add(blanketDraft(), AddOptions{})
	require.NoError(t, err)

	_, err = s.Add(blanketDraft(), AddOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateFound))
	dup, ok := AsDuplicate(err)
	require.True(t, ok)
	assert.Equal(t, first.ID, dup.Existing.ID)
	assert.Equal(t, 1, s.Len())

	second, err := s.Add(blanketDraft(), AddOptions{Force: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	items := s.All()
	require.Len(t, items, 2)
	grand := decimal.Zero
	for _, item := range items {
		assert.True(t, item.Breakdown.Total.Equal(d("2336.40")))
		grand = grand.Add(item.Breakdown.Total)
	}
	assert.True(t, grand.Equal(d("4672.80")), "grand %s", grand)
}

func TestDuplicateIgnoresQuantityDiscountAndGST(t *testing.T) {
	s := newTestStore()
	_, err := s.Add(blanketDraft(), AddOptions{})
	require.NoError(t, err)

	other := blanketDraft()
	other.Input.Quantity = 7
	other.Input.DiscountPercent = d("20")
	other.Input.GSTPercent = d("12")

	_, err = s.Add(other, AddOptions{})
	assert.ErrorIs(t, err, ErrDuplicateFound)
}

func TestDuplicateComparesDimensionsInMeters(t *testing.T) {
	s := newTestStore()
	_, err := s.Add(blanketDraft(), AddOptions{})
	require.NoError(t, err)

	same := blanketDraft()
	same.Input.Dimensions = &pricing.Dimensions{
		Length: units.Measurement{Value: d("100"), Unit: units.Centimeter},
		Width:  units.Measurement{Value: d("2"), Unit: units.Meter},
	}
	_, err = s.Add(same, AddOptions{})
	assert.ErrorIs(t, err, ErrDuplicateFound)
}

func TestNotDuplicateWhenConfigurationDiffers(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Draft)
	}{
		{"length", func(dr *Draft) { dr.Input.Dimensions.Length.Value = d("1001") }},
		{"thickness", func(dr *Draft) { dr.Input.Thickness = "1.70" }},
		{"machine", func(dr *Draft) { dr.Input.Machine = "KBA Rapida" }},
		{"surcharge", func(dr *Draft) { dr.Input.Surcharge = catalog.AreaSurcharge("underpacking", d("50")) }},
		{"no surcharge", func(dr *Draft) { dr.Input.Surcharge = nil }},
		{"variant", func(dr *Draft) { dr.Input.Variant = catalog.AreaPriced("bl-2", "Conti Air", d("500")) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore()
			_, err := s.Add(blanketDraft(), AddOptions{})
			require.NoError(t, err)

			other := blanketDraft()
			tc.mutate(&other)
			_, err = s.Add(other, AddOptions{})
			require.NoError(t, err)
			assert.Equal(t, 2, s.Len())
		})
	}
}

func TestMPackDuplicateBySizeAndMachine(t *testing.T) {
	s := newTestStore()
	_, err := s.Add(mpackDraft(), AddOptions{})
	require.NoError(t, err)

	_, err = s.Add(mpackDraft(), AddOptions{})
	assert.ErrorIs(t, err, ErrDuplicateFound)

	other := mpackDraft()
	other.Input.Variant = catalog.UnitPriced("mp-1", "MPack", "100", "600x800", d("250"))
	_, err = s.Add(other, AddOptions{})
	assert.NoError(t, err)
}

func TestSetQuantityAndDiscountReprice(t *testing.T) {
	s := newTestStore()
	item, err := s.Add(blanketDraft(), AddOptions{})
	require.NoError(t, err)

	updated, err := s.SetQuantity(item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, item.ID, updated.ID)
	assert.True(t, updated.Breakdown.Subtotal.Equal(d("4400.00")))

	updated, err = s.SetDiscount(item.ID, d("0"))
	require.NoError(t, err)
	assert.True(t, updated.Breakdown.Total.Equal(d("5192.00")), "total %s", updated.Breakdown.Total)

	clamped, err := s.SetQuantity(item.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, clamped.Input.Quantity)
}

func TestUpdateIntoExistingIdentityIsDuplicate(t *testing.T) {
	s := newTestStore()
	a, err := s.Add(blanketDraft(), AddOptions{})
	require.NoError(t, err)

	other := blanketDraft()
	other.Input.Thickness = "1.70"
	b, err := s.Add(other, AddOptions{})
	require.NoError(t, err)

	_, err = s.Update(b.ID, blanketDraft().Input)
	dup, ok := AsDuplicate(err)
	require.True(t, ok)
	assert.Equal(t, a.ID, dup.Existing.ID)

	got, _ := s.Get(b.ID)
	assert.Equal(t, "1.70", got.Input.Thickness)
}

func TestUpdateUnknownItem(t *testing.T) {
	s := newTestStore()
	_, err := s.SetQuantity("missing", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newTestStore()
	item, err := s.Add(blanketDraft(), AddOptions{})
	require.NoError(t, err)

	s.Remove(item.ID)
	s.Remove(item.ID)
	s.Remove("never-existed")

	assert.Equal(t, 0, s.Len())
	_, ok := s.Get(item.ID)
	assert.False(t, ok)
}

func TestInsertionOrderKept(t *testing.T) {
	s := newTestStore()
	a, _ := s.Add(blanketDraft(), AddOptions{})
	b, _ := s.Add(mpackDraft(), AddOptions{})
	c, _ := s.Add(blanketDraft(), AddOptions{Force: true})

	s.Remove(b.ID)

	var ids []string
	for _, item := range s.All() {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{a.ID, c.ID}, ids)
}

func TestReturnedItemsAreCopies(t *testing.T) {
	s := newTestStore()
	item, err := s.Add(blanketDraft(), AddOptions{})
	require.NoError(t, err)

	item.Input.Dimensions.Length.Value = d("5")
	item.Input.Surcharge.Label = "changed"

	got, _ := s.Get(item.ID)
	assert.True(t, got.Input.Dimensions.Length.Value.Equal(d("1000")))
	assert.Equal(t, "bar", got.Input.Surcharge.Label)
}

func TestFind(t *testing.T) {
	s := newTestStore()
	_, _ = s.Add(blanketDraft(), AddOptions{})
	_, _ = s.Add(mpackDraft(), AddOptions{})

	mpacks := s.Find(func(i Item) bool { return i.Type == enums.ProductTypeMPack })
	require.Len(t, mpacks, 1)
	assert.Equal(t, "mp-1", mpacks[0].Input.Variant.ID)
}

func TestConfirmAdoptsServerValues(t *testing.T) {
	s := newTestStore()
	local, err := s.Add(blanketDraft(), AddOptions{})
	require.NoError(t, err)

	server := local
	server.ID = "srv-42"
	server.Breakdown.Total = d("2336.41")

	confirmed, err := s.Confirm(local.ID, server)
	require.NoError(t, err)
	assert.Equal(t, "srv-42", confirmed.ID)
	assert.Equal(t, enums.SyncStateSynced, confirmed.SyncState)

	_, ok := s.Get(local.ID)
	assert.False(t, ok)
	got, ok := s.Get("srv-42")
	require.True(t, ok)
	assert.True(t, got.Breakdown.Total.Equal(d("2336.41")))
}

func TestRevertMarksError(t *testing.T) {
	s := newTestStore()
	item, _ := s.Add(blanketDraft(), AddOptions{})
	confirmed := item.Input

	_, err := s.SetQuantity(item.ID, 9)
	require.NoError(t, err)

	reverted, err := s.Revert(item.ID, confirmed, "boom")
	require.NoError(t, err)
	assert.Equal(t, 2, reverted.Input.Quantity)
	assert.Equal(t, enums.SyncStateError, reverted.SyncState)
	assert.Equal(t, "boom", reverted.LastError)
	assert.True(t, reverted.Breakdown.Total.Equal(d("2336.40")))
}

func TestReplaceResetsCart(t *testing.T) {
	s := newTestStore()
	_, _ = s.Add(blanketDraft(), AddOptions{})

	server, err := s.Add(mpackDraft(), AddOptions{})
	require.NoError(t, err)
	server.ID = "srv-1"
	server.SyncState = ""

	s.Replace([]Item{server})

	items := s.All()
	require.Len(t, items, 1)
	assert.Equal(t, "srv-1", items[0].ID)
	assert.Equal(t, enums.SyncStateSynced, items[0].SyncState)
}

func TestListenersObserveMutations(t *testing.T) {
	s := newTestStore()
	var kinds []EventKind
	unsubscribe := s.Subscribe(func(ev Event) {
		kinds = append(kinds, ev.Kind)
		// listeners may read the store without deadlocking
		_ = s.Len()
	})

	item, _ := s.Add(blanketDraft(), AddOptions{})
	_, _ = s.SetQuantity(item.ID, 3)
	_, _ = s.MarkState(item.ID, enums.SyncStateSyncing, "")
	s.Remove(item.ID)
	s.Replace(nil)

	unsubscribe()
	_, _ = s.Add(blanketDraft(), AddOptions{})

	assert.Equal(t, []EventKind{EventAdded, EventUpdated, EventStateChanged, EventRemoved, EventReset}, kinds)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	s := newTestStore()
	draft := blanketDraft()
	draft.Input.Dimensions.Width.Unit = units.Unit("furlong")

	_, err := s.Add(draft, AddOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, units.ErrInvalidUnit)
	assert.Equal(t, 0, s.Len())
}
