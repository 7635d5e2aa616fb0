package positions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
)

// Repository manages persistence for positions and tier reference data.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, position *models.Position) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Position, error)
	FindByIDsForUser(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]models.Position, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Position, error)
	// ListAccruable returns active positions whose last accrual is older than
	// cutoff, in stable id order so the accrual pass is deterministic.
	ListAccruable(ctx context.Context, cutoff time.Time, limit int) ([]models.Position, error)
	Update(ctx context.Context, position *models.Position) error
	// SettleAccrual conditionally advances a position's accrual bookkeeping.
	// The guard on last_accrued_at makes concurrent accrual passes safe: only
	// the writer that still sees the old timestamp applies.
	SettleAccrual(ctx context.Context, id uuid.UUID, seenLastAccruedAt time.Time, roiDelta decimal.Decimal, accruedAt time.Time, status enums.PositionStatus) (bool, error)
	// ClaimAccrued conditionally zeroes accrued_roi_usd if the position is
	// still active and still holds the amount the caller read.
	ClaimAccrued(ctx context.Context, id uuid.UUID, seenAccrued decimal.Decimal) (bool, error)
	CreateClaim(ctx context.Context, claim *models.RoiClaim) error
	CreateUpgrade(ctx context.Context, upgrade *models.PositionUpgrade) error

	FindTierByID(ctx context.Context, id uuid.UUID) (*models.Tier, error)
	FindTierForAmount(ctx context.Context, amount decimal.Decimal) (*models.Tier, error)
	ListTiers(ctx context.Context) ([]models.Tier, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a position repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, position *models.Position) error {
	return r.db.WithContext(ctx).Create(position).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Position, error) {
	var position models.Position
	if err := r.db.WithContext(ctx).First(&position, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &position, nil
}

func (r *repository) FindByIDsForUser(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]models.Position, error) {
	var positions []models.Position
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND user_id = ?", ids, userID).
		Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Position, error) {
	var positions []models.Position
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *repository) ListAccruable(ctx context.Context, cutoff time.Time, limit int) ([]models.Position, error) {
	var positions []models.Position
	if err := r.db.WithContext(ctx).
		Where("status = ? AND last_accrued_at < ?", enums.PositionStatusActive, cutoff).
		Order("id").
		Limit(limit).
		Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *repository) Update(ctx context.Context, position *models.Position) error {
	return r.db.WithContext(ctx).Save(position).Error
}

func (r *repository) SettleAccrual(ctx context.Context, id uuid.UUID, seenLastAccruedAt time.Time, roiDelta decimal.Decimal, accruedAt time.Time, status enums.PositionStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Position{}).
		Where("id = ? AND status = ? AND last_accrued_at = ?", id, enums.PositionStatusActive, seenLastAccruedAt).
		Updates(map[string]any{
			"accrued_roi_usd": gorm.Expr("accrued_roi_usd + ?", roiDelta),
			"last_accrued_at": accruedAt,
			"status":          status,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ClaimAccrued(ctx context.Context, id uuid.UUID, seenAccrued decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Position{}).
		Where("id = ? AND status = ? AND accrued_roi_usd = ?", id, enums.PositionStatusActive, seenAccrued).
		Update("accrued_roi_usd", decimal.Zero)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateClaim(ctx context.Context, claim *models.RoiClaim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

func (r *repository) CreateUpgrade(ctx context.Context, upgrade *models.PositionUpgrade) error {
	return r.db.WithContext(ctx).Create(upgrade).Error
}

func (r *repository) FindTierByID(ctx context.Context, id uuid.UUID) (*models.Tier, error) {
	var tier models.Tier
	if err := r.db.WithContext(ctx).First(&tier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tier, nil
}

func (r *repository) FindTierForAmount(ctx context.Context, amount decimal.Decimal) (*models.Tier, error) {
	var tier models.Tier
	if err := r.db.WithContext(ctx).
		Where("min_amount_usd <= ? AND max_amount_usd >= ?", amount, amount).
		Order("min_amount_usd").
		First(&tier).Error; err != nil {
		return nil, err
	}
	return &tier, nil
}

func (r *repository) ListTiers(ctx context.Context) ([]models.Tier, error) {
	var tiers []models.Tier
	if err := r.db.WithContext(ctx).
		Order("min_amount_usd").
		Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}
