package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base provides a shared foundation for owner-scoped repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// WithTx rebinds the base to tx. A nil tx keeps the current connection.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Owned scopes a query on model to the rows of ownerID.
func (b Base) Owned(ctx context.Context, model any, ownerID string) *gorm.DB {
	return b.DB(ctx).Model(model).Where("owner_id = ?", ownerID)
}
