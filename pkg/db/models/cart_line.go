package models

import (
	"time"

	"github.com/angelmondragon/quotecart/internal/pricing"
	"github.com/angelmondragon/quotecart/pkg/enums"
)

// CartLine persists one priced line of an owner's saved cart.
type CartLine struct {
	ID          string            `gorm:"column:id;primaryKey"`
	OwnerID     string            `gorm:"column:owner_id;not null;index:idx_cart_lines_owner_position,priority:1;index:idx_cart_lines_owner_identity,priority:1"`
	Position    int64             `gorm:"column:position;not null;index:idx_cart_lines_owner_position,priority:2"`
	ProductType enums.ProductType `gorm:"column:product_type;not null"`
	IdentityKey string            `gorm:"column:identity_key;not null;index:idx_cart_lines_owner_identity,priority:2"`
	Input       pricing.Input     `gorm:"column:input;not null;serializer:json"`
	Breakdown   pricing.Breakdown `gorm:"column:breakdown;not null;serializer:json"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name used by the migrations.
func (CartLine) TableName() string {
	return "cart_lines"
}
