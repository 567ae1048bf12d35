// Package units converts linear measurements into meters.
package units

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidUnit is returned for unit tags outside the supported table.
var ErrInvalidUnit = errors.New("invalid unit")

// ErrNegativeMeasurement is returned when a measurement value is below zero.
var ErrNegativeMeasurement = errors.New("negative measurement")

// Unit is a linear measurement unit tag.
type Unit string

const (
	Millimeter Unit = "mm"
	Centimeter Unit = "cm"
	Meter      Unit = "m"
	Inch       Unit = "in"
	Foot       Unit = "ft"
	Yard       Unit = "yd"
)

var (
	thousand = decimal.NewFromInt(1000)
	hundred  = decimal.NewFromInt(100)

	metersPerInch = decimal.RequireFromString("0.0254")
	metersPerFoot = decimal.RequireFromString("0.3048")
	metersPerYard = decimal.RequireFromString("0.9144")

	// 1 m² = 1.19599 yd²
	squareYardsPerSquareMeter = decimal.RequireFromString("1.19599")
)

var aliases = map[string]Unit{
	"mm":          Millimeter,
	"millimeter":  Millimeter,
	"millimeters": Millimeter,
	"cm":          Centimeter,
	"centimeter":  Centimeter,
	"centimeters": Centimeter,
	"m":           Meter,
	"meter":       Meter,
	"meters":      Meter,
	"in":          Inch,
	"inch":        Inch,
	"inches":      Inch,
	"ft":          Foot,
	"feet":        Foot,
	"foot":        Foot,
	"yd":          Yard,
	"yard":        Yard,
	"yards":       Yard,
}

// String implements fmt.Stringer.
func (u Unit) String() string {
	return string(u)
}

// IsValid reports whether the unit has a conversion factor.
func (u Unit) IsValid() bool {
	switch u {
	case Millimeter, Centimeter, Meter, Inch, Foot, Yard:
		return true
	}
	return false
}

// ParseUnit normalizes raw input, accepting the long-form aliases the storefront emits.
func ParseUnit(value string) (Unit, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	if unit, ok := aliases[key]; ok {
		return unit, nil
	}
	return "", invalidUnit(value)
}

// Measurement is a non-negative linear value in a given unit.
type Measurement struct {
	Value decimal.Decimal `json:"value"`
	Unit  Unit            `json:"unit"`
}

// New builds a measurement from a float, mainly for callers holding parsed form input.
func New(value float64, unit Unit) Measurement {
	return Measurement{Value: decimal.NewFromFloat(value), Unit: unit}
}

// ToMeters converts m to meters. A zero value yields zero regardless of unit.
func ToMeters(m Measurement) (decimal.Decimal, error) {
	if m.Value.IsZero() {
		return decimal.Zero, nil
	}
	if m.Value.IsNegative() {
		return decimal.Zero, pkgerrors.Field(ErrNegativeMeasurement, "value", "measurement must not be negative")
	}
	switch m.Unit {
	case Millimeter:
		return m.Value.Div(thousand), nil
	case Centimeter:
		return m.Value.Div(hundred), nil
	case Meter:
		return m.Value, nil
	case Inch:
		return m.Value.Mul(metersPerInch), nil
	case Foot:
		return m.Value.Mul(metersPerFoot), nil
	case Yard:
		return m.Value.Mul(metersPerYard), nil
	}
	return decimal.Zero, invalidUnit(string(m.Unit))
}

// SquareMetersToSquareYards converts an area for display.
func SquareMetersToSquareYards(area decimal.Decimal) decimal.Decimal {
	return area.Mul(squareYardsPerSquareMeter)
}

func invalidUnit(raw string) error {
	return pkgerrors.Field(ErrInvalidUnit, "unit", fmt.Sprintf("unit %q is not supported", raw))
}
