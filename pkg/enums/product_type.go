package enums

import "fmt"

// ProductType identifies the product family of a cart line.
type ProductType string

const (
	ProductTypeBlanket ProductType = "blanket"
	ProductTypeMPack   ProductType = "mpack"
)

var validProductTypes = []ProductType{
	ProductTypeBlanket,
	ProductTypeMPack,
}

// String implements fmt.Stringer.
func (p ProductType) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductType converts raw input into a ProductType.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}
