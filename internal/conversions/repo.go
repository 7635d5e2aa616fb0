package conversions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagefund/wallet-engine/pkg/db/models"
)

// Repository manages persistence for conversion records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, conversion *models.Conversion) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Conversion, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversion, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a conversion repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, conversion *models.Conversion) error {
	return r.db.WithContext(ctx).Create(conversion).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Conversion, error) {
	var conversion models.Conversion
	if err := r.db.WithContext(ctx).First(&conversion, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conversion, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversion, error) {
	var conversions []models.Conversion
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&conversions).Error; err != nil {
		return nil, err
	}
	return conversions, nil
}
