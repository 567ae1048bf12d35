// Package pricing turns a configured selection into a priced line item.
//
// The stage order below is fixed; reordering changes the financial result:
//
//	unitBase -> unitSurcharge -> unitPrice -> subtotal -> discount -> taxable -> GST -> total
//
// Every monetary stage is rounded to two decimals before the next one consumes it.
package pricing

import (
	"github.com/angelmondragon/quotecart/internal/catalog"
	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
	"github.com/angelmondragon/quotecart/pkg/units"
	"github.com/shopspring/decimal"
)

// Breakdown is the immutable result of a pricing pass.
type Breakdown struct {
	AreaSquareMeters decimal.Decimal `json:"area_sq_m"`
	UnitBase         decimal.Decimal `json:"unit_base"`
	UnitSurcharge    decimal.Decimal `json:"unit_surcharge"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	TaxableAmount    decimal.Decimal `json:"taxable_amount"`
	GSTAmount        decimal.Decimal `json:"gst_amount"`
	Total            decimal.Decimal `json:"total"`
}

// Round2 rounds a monetary amount to two decimals, half away from zero.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// Price computes the breakdown for in after normalizing it.
func Price(in Input) (Breakdown, error) {
	norm, err := in.Normalize()
	if err != nil {
		return Breakdown{}, err
	}
	if err := norm.Variant.Validate(); err != nil {
		return Breakdown{}, err
	}

	var out Breakdown
	switch norm.Variant.Kind {
	case catalog.KindArea:
		area, err := Area(norm.Dimensions)
		if err != nil {
			return Breakdown{}, err
		}
		out.AreaSquareMeters = area.Round(4)
		out.UnitBase = Round2(area.Mul(norm.Variant.RatePerSquareMeter))
		if s := norm.Surcharge; s != nil && s.RatePerSquareMeter != nil {
			out.UnitSurcharge = Round2(s.RatePerSquareMeter.Mul(area))
		}
	case catalog.KindUnit:
		out.UnitBase = Round2(norm.Variant.UnitPrice)
		if s := norm.Surcharge; s != nil && s.FlatRate != nil {
			out.UnitSurcharge = Round2(*s.FlatRate)
		}
	}

	out.UnitPrice = Round2(out.UnitBase.Add(out.UnitSurcharge))
	out.Subtotal = Round2(out.UnitPrice.Mul(decimal.NewFromInt(int64(norm.Quantity))))
	out.DiscountAmount = Round2(out.Subtotal.Mul(norm.DiscountPercent).Div(hundred))
	out.TaxableAmount = Round2(out.Subtotal.Sub(out.DiscountAmount))
	out.GSTAmount = Round2(out.TaxableAmount.Mul(norm.GSTPercent).Div(hundred))
	out.Total = Round2(out.TaxableAmount.Add(out.GSTAmount))
	return out, nil
}

// Area returns length × width in square meters.
func Area(dims *Dimensions) (decimal.Decimal, error) {
	if dims == nil {
		return decimal.Zero, pkgerrors.Field(ErrMissingDimensions, "dimensions", "length and width are required for area-priced products")
	}
	length, err := units.ToMeters(dims.Length)
	if err != nil {
		return decimal.Zero, err
	}
	width, err := units.ToMeters(dims.Width)
	if err != nil {
		return decimal.Zero, err
	}
	return length.Mul(width), nil
}
