package cart

import (
	"time"

	"github.com/angelmondragon/quotecart/internal/catalog"
	"github.com/angelmondragon/quotecart/internal/pricing"
	"github.com/angelmondragon/quotecart/pkg/enums"
)

// Item is a priced cart line. Values handed out by the Store are copies.
type Item struct {
	ID        string            `json:"id"`
	Type      enums.ProductType `json:"type"`
	Input     pricing.Input     `json:"input"`
	Breakdown pricing.Breakdown `json:"breakdown"`
	CreatedAt time.Time         `json:"created_at"`
	SyncState enums.SyncState   `json:"sync_state"`
	LastError string            `json:"last_error,omitempty"`
}

// Draft is a priced-to-be selection that has not entered the store yet.
type Draft struct {
	Type  enums.ProductType
	Input pricing.Input
}

// TypeFor derives the product family from the variant kind.
func TypeFor(kind catalog.Kind) enums.ProductType {
	if kind == catalog.KindArea {
		return enums.ProductTypeBlanket
	}
	return enums.ProductTypeMPack
}

// Identity returns the duplicate identity of the item.
func (i Item) Identity() Identity {
	return IdentityOf(i.Type, i.Input)
}

func (i Item) clone() Item {
	out := i
	out.Input = cloneInput(i.Input)
	return out
}

func cloneInput(in pricing.Input) pricing.Input {
	out := in
	if in.Dimensions != nil {
		dims := *in.Dimensions
		out.Dimensions = &dims
	}
	if in.Surcharge != nil {
		s := *in.Surcharge
		if s.RatePerSquareMeter != nil {
			rate := *s.RatePerSquareMeter
			s.RatePerSquareMeter = &rate
		}
		if s.FlatRate != nil {
			rate := *s.FlatRate
			s.FlatRate = &rate
		}
		out.Surcharge = &s
	}
	return out
}
