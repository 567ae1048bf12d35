package catalog

import (
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
	"github.com/shopspring/decimal"
)

// Kind distinguishes how a variant is priced.
type Kind string

const (
	// KindArea variants are priced by rate × computed area (blankets).
	KindArea Kind = "area"
	// KindUnit variants carry a fixed per-unit price (mpack underpacking sheets).
	KindUnit Kind = "unit"
)

// Variant is a read-only catalog record. Only the fields relevant to Kind are populated.
type Variant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	RatePerSquareMeter decimal.Decimal `json:"rate_per_square_meter"`

	Thickness string          `json:"thickness,omitempty"`
	Size      string          `json:"size,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// AreaPriced builds a variant priced per square meter.
func AreaPriced(id, name string, ratePerSquareMeter decimal.Decimal) Variant {
	return Variant{ID: id, Name: name, Kind: KindArea, RatePerSquareMeter: ratePerSquareMeter}
}

// UnitPriced builds a variant with a fixed per-unit price.
func UnitPriced(id, name, thickness, size string, unitPrice decimal.Decimal) Variant {
	return Variant{ID: id, Name: name, Kind: KindUnit, Thickness: thickness, Size: size, UnitPrice: unitPrice}
}

// Validate checks the variant carries a usable rate for its kind.
func (v Variant) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	switch v.Kind {
	case KindArea:
		if v.RatePerSquareMeter.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variant %s has a negative area rate", v.ID))
		}
	case KindUnit:
		if v.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variant %s has a negative unit price", v.ID))
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variant %s has unknown kind %q", v.ID, v.Kind))
	}
	return nil
}

// Surcharge is an additive barring/underpacking option layered over the base price.
// Area-priced variants use RatePerSquareMeter; unit-priced variants use FlatRate.
type Surcharge struct {
	Label              string           `json:"label"`
	RatePerSquareMeter *decimal.Decimal `json:"rate_per_square_meter,omitempty"`
	FlatRate           *decimal.Decimal `json:"flat_rate,omitempty"`
}

// AreaSurcharge builds a per-area surcharge.
func AreaSurcharge(label string, rate decimal.Decimal) *Surcharge {
	return &Surcharge{Label: label, RatePerSquareMeter: &rate}
}

// FlatSurcharge builds a per-unit surcharge.
func FlatSurcharge(label string, rate decimal.Decimal) *Surcharge {
	return &Surcharge{Label: label, FlatRate: &rate}
}
