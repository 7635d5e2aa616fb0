package positions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
)

const accrualBatchSize = 500

var (
	oneHundred   = decimal.NewFromInt(100)
	hoursPerDay  = decimal.NewFromInt(24)
	nanosPerHour = decimal.NewFromInt(int64(time.Hour))
)

// Accruer advances ROI accrual for active positions. Safe to run concurrently:
// the conditional settle guarantees no interval is ever counted twice.
type Accruer interface {
	Accrue(ctx context.Context, now time.Time) (*AccrualStats, error)
}

// AccrualStats summarizes one accrual pass.
type AccrualStats struct {
	Scanned  int
	Accrued  int
	Matured  int
	Skipped  int
	TotalRoi decimal.Decimal
}

type accruer struct {
	repo Repository
}

// NewAccruer builds an accruer over the given repository.
func NewAccruer(repo Repository) (Accruer, error) {
	if repo == nil {
		return nil, fmt.Errorf("position repository required")
	}
	return &accruer{repo: repo}, nil
}

func (a *accruer) Accrue(ctx context.Context, now time.Time) (*AccrualStats, error) {
	now = now.UTC()
	stats := &AccrualStats{TotalRoi: decimal.Zero}
	tiers := map[uuid.UUID]*models.Tier{}

	var errs error
	for {
		batch, err := a.repo.ListAccruable(ctx, now, accrualBatchSize)
		if err != nil {
			return stats, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list accruable positions")
		}
		if len(batch) == 0 {
			break
		}

		progressed := false
		for i := range batch {
			position := &batch[i]
			stats.Scanned++

			tier, ok := tiers[position.TierID]
			if !ok {
				tier, err = a.repo.FindTierByID(ctx, position.TierID)
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("position %s: load tier: %w", position.ID, err))
					continue
				}
				tiers[position.TierID] = tier
			}

			applied, matured, roi, err := a.accrueOne(ctx, position, tier, now)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("position %s: %w", position.ID, err))
				continue
			}
			if !applied {
				stats.Skipped++
				continue
			}
			progressed = true
			stats.Accrued++
			stats.TotalRoi = stats.TotalRoi.Add(roi)
			if matured {
				stats.Matured++
			}
		}

		if len(batch) < accrualBatchSize {
			break
		}
		// Every row in a full batch was contested or failed; stop rather
		// than spin on the same rows.
		if !progressed {
			break
		}
	}
	return stats, errs
}

// accrueOne settles a single position up to now, capped at maturity. The
// proration is principal * daily_roi_pct/100 * elapsed_hours/24.
func (a *accruer) accrueOne(ctx context.Context, position *models.Position, tier *models.Tier, now time.Time) (applied, matured bool, roi decimal.Decimal, err error) {
	until := now
	if position.MaturesAt.Before(until) {
		until = position.MaturesAt
	}
	matured = !now.Before(position.MaturesAt)

	status := enums.PositionStatusActive
	if matured {
		status = enums.PositionStatusMatured
	}

	elapsed := until.Sub(position.LastAccruedAt)
	if elapsed <= 0 {
		// Already accrued through maturity; only the status flip remains.
		if !matured {
			return false, false, decimal.Zero, nil
		}
		applied, err = a.repo.SettleAccrual(ctx, position.ID, position.LastAccruedAt, decimal.Zero, position.LastAccruedAt, status)
		return applied, matured, decimal.Zero, err
	}

	// Hours are derived from the integer nanosecond count so the proration
	// factor never passes through a float.
	elapsedHours := decimal.NewFromInt(elapsed.Nanoseconds()).Div(nanosPerHour)
	roi = position.PrincipalUsd.
		Mul(tier.DailyRoiPct).Div(oneHundred).
		Mul(elapsedHours).Div(hoursPerDay)

	applied, err = a.repo.SettleAccrual(ctx, position.ID, position.LastAccruedAt, roi, until, status)
	if err != nil || !applied {
		return applied, matured, decimal.Zero, err
	}
	return true, matured, roi, nil
}
