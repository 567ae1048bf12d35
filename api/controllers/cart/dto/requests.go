package cartdto

import "github.com/angelmondragon/quotecart/internal/pricing"

// AddItemRequest is the payload for adding a configured product line.
type AddItemRequest struct {
	// Type is derived from the variant kind when omitted.
	Type          string        `json:"type" validate:"omitempty,oneof=blanket mpack"`
	Input         pricing.Input `json:"input"`
	ForceAdd      bool          `json:"force_add"`
	UseDefaultGST bool          `json:"use_default_gst"`
}

// CountResponse reports how many lines the cart holds.
type CountResponse struct {
	Count int `json:"count"`
}

// RemoveResponse acknowledges a removed line.
type RemoveResponse struct {
	ID      string `json:"id"`
	Removed bool   `json:"removed"`
}

// ClearResponse acknowledges an emptied cart.
type ClearResponse struct {
	Cleared bool `json:"cleared"`
}
