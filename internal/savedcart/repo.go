package savedcart

import (
	"context"

	"github.com/angelmondragon/quotecart/internal/repo"
	"github.com/angelmondragon/quotecart/pkg/db/models"
	"gorm.io/gorm"
)

type repository struct {
	repo.Base
}

// NewRepository builds a saved cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) List(ctx context.Context, ownerID string) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.Owned(ctx, &models.CartLine{}, ownerID).
		Order("position ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) Count(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.Owned(ctx, &models.CartLine{}, ownerID).
		Count(&count).Error
	return count, err
}

func (r *repository) Find(ctx context.Context, ownerID, id string) (*models.CartLine, error) {
	var line models.CartLine
	err := r.Owned(ctx, &models.CartLine{}, ownerID).
		Where("id = ?", id).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) FindByIdentity(ctx context.Context, ownerID, identityKey string) (*models.CartLine, error) {
	var line models.CartLine
	err := r.Owned(ctx, &models.CartLine{}, ownerID).
		Where("identity_key = ?", identityKey).
		Order("position ASC").
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) NextPosition(ctx context.Context, ownerID string) (int64, error) {
	var last int64
	err := r.Owned(ctx, &models.CartLine{}, ownerID).
		Select("COALESCE(MAX(position), 0)").
		Row().
		Scan(&last)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

func (r *repository) Create(ctx context.Context, line *models.CartLine) error {
	return r.DB(ctx).Create(line).Error
}

func (r *repository) Save(ctx context.Context, line *models.CartLine) error {
	return r.DB(ctx).Save(line).Error
}

func (r *repository) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	res := r.DB(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DeleteAll(ctx context.Context, ownerID string) (int64, error) {
	res := r.DB(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}
