package cart

import (
	"github.com/angelmondragon/quotecart/internal/pricing"
	"github.com/shopspring/decimal"
)

// Patch is a partial update of the mutable fields of a persisted line. Nil fields are
// left untouched.
type Patch struct {
	Quantity        *int             `json:"quantity,omitempty"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
	GSTPercent      *decimal.Decimal `json:"gst_percent,omitempty"`
}

// QuantityPatch sets only the quantity.
func QuantityPatch(qty int) Patch {
	return Patch{Quantity: &qty}
}

// DiscountPatch sets only the discount percentage.
func DiscountPatch(pct decimal.Decimal) Patch {
	return Patch{DiscountPercent: &pct}
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Quantity == nil && p.DiscountPercent == nil && p.GSTPercent == nil
}

// Merge folds later into p. Fields set in later win.
func (p Patch) Merge(later Patch) Patch {
	out := p
	if later.Quantity != nil {
		out.Quantity = later.Quantity
	}
	if later.DiscountPercent != nil {
		out.DiscountPercent = later.DiscountPercent
	}
	if later.GSTPercent != nil {
		out.GSTPercent = later.GSTPercent
	}
	return out
}

// Apply returns in with the patched fields replaced.
func (p Patch) Apply(in pricing.Input) pricing.Input {
	out := in
	if p.Quantity != nil {
		out.Quantity = *p.Quantity
	}
	if p.DiscountPercent != nil {
		out.DiscountPercent = *p.DiscountPercent
	}
	if p.GSTPercent != nil {
		out.GSTPercent = *p.GSTPercent
	}
	return out
}
