package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/vantagefund/wallet-engine/internal/positions"
	"github.com/vantagefund/wallet-engine/pkg/logger"
)

// AccrualJob advances ROI accrual for all active positions.
type AccrualJob struct {
	accruer positions.Accruer
	logg    *logger.Logger
	now     func() time.Time
}

// NewAccrualJob builds the accrual job.
func NewAccrualJob(accruer positions.Accruer, logg *logger.Logger) (*AccrualJob, error) {
	if accruer == nil {
		return nil, fmt.Errorf("accruer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &AccrualJob{accruer: accruer, logg: logg, now: time.Now}, nil
}

// Name identifies the job in logs and metrics.
func (j *AccrualJob) Name() string { return "roi-accrual" }

// Run performs one accrual pass. Per-position failures are aggregated; one bad
// row does not stop the rest of the pass.
func (j *AccrualJob) Run(ctx context.Context) error {
	stats, err := j.accruer.Accrue(ctx, j.now())
	if stats != nil {
		statsCtx := j.logg.WithFields(ctx, map[string]any{
			"scanned":   stats.Scanned,
			"accrued":   stats.Accrued,
			"matured":   stats.Matured,
			"skipped":   stats.Skipped,
			"total_roi": stats.TotalRoi.String(),
		})
		j.logg.Info(statsCtx, "accrual pass finished")
	}
	return err
}
