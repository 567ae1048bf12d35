package cart

import (
	"sort"
	"strings"

	"github.com/angelmondragon/quotecart/internal/pricing"
	"github.com/angelmondragon/quotecart/pkg/enums"
	"github.com/angelmondragon/quotecart/pkg/units"
)

// dimensions compare at 0.01 mm
const dimensionPlaces = 5

// Identity is the set of fields deciding whether two lines are the same configured
// product. Quantity, discount, GST, ids and timestamps are not part of it.
type Identity map[string]string

// IdentityOf builds the identity for a product type and pricing input.
func IdentityOf(t enums.ProductType, in pricing.Input) Identity {
	id := Identity{
		"type":    string(t),
		"variant": in.Variant.ID,
	}
	set := func(key, value string) {
		if v := strings.TrimSpace(value); v != "" {
			id[key] = strings.ToLower(v)
		}
	}
	set("machine", in.Machine)
	set("thickness", firstNonEmpty(in.Thickness, in.Variant.Thickness))
	set("size", in.Variant.Size)
	if in.Surcharge != nil {
		set("surcharge", in.Surcharge.Label)
	}
	if in.Dimensions != nil {
		id["length"] = dimensionKey(in.Dimensions.Length)
		id["width"] = dimensionKey(in.Dimensions.Width)
	}
	return id
}

// Key renders the identity as a canonical string independent of field order.
func (id Identity) Key() string {
	keys := make([]string, 0, len(id))
	for k := range id {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(id[k])
	}
	return b.String()
}

// Equal reports whether both identities carry the same fields and values.
func (id Identity) Equal(other Identity) bool {
	if len(id) != len(other) {
		return false
	}
	for k, v := range id {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func dimensionKey(m units.Measurement) string {
	meters, err := units.ToMeters(m)
	if err != nil {
		return m.Value.String() + string(m.Unit)
	}
	return meters.Round(dimensionPlaces).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
