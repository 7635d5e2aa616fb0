package deposits

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
)

// Repository manages persistence for deposit requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, deposit *models.Deposit) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error)
	// TransitionStatus performs the conditional update that makes decisions
	// race-safe: rows move from -> to only while still in the from state. The
	// boolean reports whether this caller won the transition.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.DepositStatus, updates map[string]any) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Deposit, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a deposit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, deposit *models.Deposit) error {
	return r.db.WithContext(ctx).Create(deposit).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	var deposit models.Deposit
	if err := r.db.WithContext(ctx).First(&deposit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &deposit, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.DepositStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Deposit{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Deposit, error) {
	var deposits []models.Deposit
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&deposits).Error; err != nil {
		return nil, err
	}
	return deposits, nil
}
