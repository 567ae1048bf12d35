package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/quotecart/internal/catalog"
	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
	"github.com/angelmondragon/quotecart/pkg/units"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned when quantity text is not a positive integer.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidPercent is returned for unparsable percentages or a negative GST rate.
	ErrInvalidPercent = errors.New("invalid percent")
	// ErrMissingDimensions is returned when an area-priced variant has no dimensions.
	ErrMissingDimensions = errors.New("missing dimensions")
)

var (
	hundred = decimal.NewFromInt(100)

	blanketGST = decimal.NewFromInt(18)
	mpackGST   = decimal.NewFromInt(12)
)

// Dimensions are the length and width of an area-priced item.
type Dimensions struct {
	Length units.Measurement `json:"length"`
	Width  units.Measurement `json:"width"`
}

// Input is the value object the presentation layer builds from user selections.
type Input struct {
	Variant         catalog.Variant    `json:"variant"`
	Machine         string             `json:"machine,omitempty"`
	Thickness       string             `json:"thickness,omitempty"`
	Dimensions      *Dimensions        `json:"dimensions,omitempty"`
	Surcharge       *catalog.Surcharge `json:"surcharge,omitempty"`
	Quantity        int                `json:"quantity"`
	DiscountPercent decimal.Decimal    `json:"discount_percent"`
	GSTPercent      decimal.Decimal    `json:"gst_percent"`
}

// Normalize applies the clamping rules: quantity below 1 becomes 1 and the discount is
// held inside [0,100]. A negative GST rate cannot be clamped meaningfully and is an error.
func (in Input) Normalize() (Input, error) {
	out := in
	if out.Quantity < 1 {
		out.Quantity = 1
	}
	out.DiscountPercent = ClampDiscount(out.DiscountPercent)
	if out.GSTPercent.IsNegative() {
		return in, pkgerrors.Field(ErrInvalidPercent, "gst_percent", "gst percent must not be negative")
	}
	return out, nil
}

// ClampDiscount holds a discount percentage inside [0,100].
func ClampDiscount(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// ParseQuantity converts form text to a quantity. Values that parse but are below 1
// clamp to 1; text that is not an integer is rejected.
func ParseQuantity(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 1, nil
	}
	qty, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, pkgerrors.Field(ErrInvalidQuantity, "quantity", fmt.Sprintf("quantity %q is not a whole number", raw))
	}
	if qty < 1 {
		return 1, nil
	}
	return qty, nil
}

// ParsePercent converts form text to a percentage. Empty text is zero.
func ParsePercent(field, raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(raw), "%")
	if trimmed == "" {
		return decimal.Zero, nil
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(trimmed))
	if err != nil {
		return decimal.Zero, pkgerrors.Field(ErrInvalidPercent, field, fmt.Sprintf("%s %q is not a number", field, raw))
	}
	return pct, nil
}

// DefaultGSTPercent returns the GST rate the storefront applies when none is chosen.
func DefaultGSTPercent(kind catalog.Kind) decimal.Decimal {
	if kind == catalog.KindArea {
		return blanketGST
	}
	return mpackGST
}
