package savedcart

import (
	"context"

	"github.com/angelmondragon/quotecart/internal/cart"
	"github.com/angelmondragon/quotecart/internal/totals"
	"github.com/angelmondragon/quotecart/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists saved cart lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, ownerID string) ([]models.CartLine, error)
	Count(ctx context.Context, ownerID string) (int64, error)
	Find(ctx context.Context, ownerID, id string) (*models.CartLine, error)
	FindByIdentity(ctx context.Context, ownerID, identityKey string) (*models.CartLine, error)
	NextPosition(ctx context.Context, ownerID string) (int64, error)
	Create(ctx context.Context, line *models.CartLine) error
	Save(ctx context.Context, line *models.CartLine) error
	Delete(ctx context.Context, ownerID, id string) (bool, error)
	DeleteAll(ctx context.Context, ownerID string) (int64, error)
}

// Service is the server-authoritative saved cart.
type Service interface {
	Get(ctx context.Context, ownerID string) (*Cart, error)
	Count(ctx context.Context, ownerID string) (int, error)
	Add(ctx context.Context, ownerID string, draft cart.Draft, opts AddOptions) (cart.Item, error)
	Update(ctx context.Context, ownerID, id string, patch cart.Patch) (cart.Item, error)
	Remove(ctx context.Context, ownerID, id string) error
	Clear(ctx context.Context, ownerID string) error
}

// Cart is an owner's saved cart with its totals.
type Cart struct {
	OwnerID string        `json:"owner_id"`
	Items   []cart.Item   `json:"items"`
	Totals  totals.Totals `json:"totals"`
}

// AddOptions tunes Service.Add.
type AddOptions struct {
	// Force stores the line even when an identical configuration is saved.
	Force bool
	// DefaultGST replaces the draft's GST rate with the configured rate for its type.
	DefaultGST bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
