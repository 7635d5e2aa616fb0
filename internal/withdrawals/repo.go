package withdrawals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
)

// Repository manages persistence for withdrawal requests and payout methods.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, withdrawal *models.Withdrawal) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	// TransitionStatus performs the conditional update that makes decisions
	// race-safe: rows move from -> to only while still in the from state. The
	// boolean reports whether this caller won the transition.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.WithdrawalStatus, updates map[string]any) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Withdrawal, error)
	// SumDailyVolume totals amount + fee_amount of the user's pending and
	// approved withdrawals created within [dayStart, dayEnd). Rejected requests
	// release their slice of the cap.
	SumDailyVolume(ctx context.Context, userID uuid.UUID, currency enums.Currency, dayStart, dayEnd time.Time) (decimal.Decimal, error)

	CreateMethod(ctx context.Context, method *models.WithdrawalMethod) error
	FindMethodForUser(ctx context.Context, id, userID uuid.UUID) (*models.WithdrawalMethod, error)
	ListMethodsForUser(ctx context.Context, userID uuid.UUID) ([]models.WithdrawalMethod, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a withdrawal repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	if err := r.db.WithContext(ctx).First(&withdrawal, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.WithdrawalStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&withdrawals).Error; err != nil {
		return nil, err
	}
	return withdrawals, nil
}

func (r *repository) SumDailyVolume(ctx context.Context, userID uuid.UUID, currency enums.Currency, dayStart, dayEnd time.Time) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Select("COALESCE(SUM(amount + fee_amount), 0) AS total").
		Where("user_id = ? AND currency = ?", userID, currency).
		Where("status IN ?", []enums.WithdrawalStatus{enums.WithdrawalStatusPending, enums.WithdrawalStatusApproved}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

func (r *repository) CreateMethod(ctx context.Context, method *models.WithdrawalMethod) error {
	return r.db.WithContext(ctx).Create(method).Error
}

func (r *repository) FindMethodForUser(ctx context.Context, id, userID uuid.UUID) (*models.WithdrawalMethod, error) {
	var method models.WithdrawalMethod
	if err := r.db.WithContext(ctx).
		First(&method, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) ListMethodsForUser(ctx context.Context, userID uuid.UUID) ([]models.WithdrawalMethod, error) {
	var methods []models.WithdrawalMethod
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}
