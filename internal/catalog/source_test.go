package catalog

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSourceBlankets(t *testing.T) {
	src := NewFSSource(fstest.MapFS{
		"blankets.json": {Data: []byte(`[
			{"id": 1, "name": "Conti Air", "ratePerSqMt": 500},
			{"id": "b-2", "name": "Legacy", "base_rate": "425.50"}
		]`)},
	})

	got, err := src.Blankets(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, KindArea, got[0].Kind)
	assert.True(t, got[0].RatePerSquareMeter.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "b-2", got[1].ID)
	assert.True(t, got[1].RatePerSquareMeter.Equal(decimal.RequireFromString("425.5")))
}

func TestFileSourceBlanketsRejectsInvalidRecords(t *testing.T) {
	src := NewFSSource(fstest.MapFS{
		"blankets.json": {Data: []byte(`[{"id": "", "name": "x"}, {"id": "b", "ratePerSqMt": -1}]`)},
	})

	_, err := src.Blankets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variant id is required")
	assert.Contains(t, err.Error(), "negative area rate")
}

func TestFileSourceDiscountsSortedDescending(t *testing.T) {
	src := NewFSSource(fstest.MapFS{
		"discount.json": {Data: []byte(`{"discounts": ["5.00", 12.5, "10", 150, -3]}`)},
	})

	got, err := src.DiscountOptions(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "12.5", got[0].String())
	assert.Equal(t, "10", got[1].String())
	assert.Equal(t, "5", got[2].String())
}

func TestFileSourceDiscountsFallback(t *testing.T) {
	src := NewFSSource(fstest.MapFS{})

	got, err := src.DiscountOptions(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "20", got[0].String())
	assert.Equal(t, "5", got[3].String())
}

func TestFileSourceSurcharges(t *testing.T) {
	src := NewFSSource(fstest.MapFS{
		"bar.json": {Data: []byte(`[{"label": "Aluminium bar", "rate": 50}]`)},
	})

	got, err := src.Surcharges(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].RatePerSquareMeter)
	assert.Nil(t, got[0].FlatRate)
	assert.True(t, got[0].RatePerSquareMeter.Equal(decimal.NewFromInt(50)))
}

func TestVariantValidate(t *testing.T) {
	assert.NoError(t, UnitPriced("mp-1", "MPack", "100", "500x700", decimal.NewFromInt(250)).Validate())
	assert.Error(t, Variant{ID: "x", Kind: "weight"}.Validate())
	assert.Error(t, UnitPriced("mp-2", "MPack", "", "", decimal.NewFromInt(-1)).Validate())
}
