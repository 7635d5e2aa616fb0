package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
)

// Repository manages persistence for ledger entries. The table is append-only:
// no update or delete operation exists anywhere in this package.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	SumByUserCurrency(ctx context.Context, userID uuid.UUID, currency enums.Currency) (decimal.Decimal, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, before *time.Time, beforeID *uuid.UUID) ([]models.LedgerEntry, error)
	ListByRef(ctx context.Context, refTable string, refID uuid.UUID) ([]models.LedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) SumByUserCurrency(ctx context.Context, userID uuid.UUID, currency enums.Currency) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND currency = ?", userID, currency).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, before *time.Time, beforeID *uuid.UUID) ([]models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if before != nil && beforeID != nil {
		query = query.Where("(created_at, id) < (?, ?)", *before, *beforeID)
	}

	var entries []models.LedgerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByRef(ctx context.Context, refTable string, refID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("ref_table = ? AND ref_id = ?", refTable, refID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
