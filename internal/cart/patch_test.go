package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatchMergeLatestWins(t *testing.T) {
	first := QuantityPatch(3).Merge(DiscountPatch(d("5")))
	merged := first.Merge(QuantityPatch(9))

	assert.Equal(t, 9, *merged.Quantity)
	assert.True(t, merged.DiscountPercent.Equal(d("5")))
	assert.Nil(t, merged.GSTPercent)
	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, merged.IsEmpty())
}

func TestPatchApplyLeavesUnsetFields(t *testing.T) {
	in := blanketDraft().Input
	out := DiscountPatch(d("0")).Apply(in)

	assert.Equal(t, in.Quantity, out.Quantity)
	assert.True(t, out.DiscountPercent.IsZero())
	assert.True(t, out.GSTPercent.Equal(in.GSTPercent))
}
