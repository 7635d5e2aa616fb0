package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/internal/positions"
)

type fakeAccruer struct {
	stats *positions.AccrualStats
	err   error
	calls int
	at    time.Time
}

func (f *fakeAccruer) Accrue(ctx context.Context, now time.Time) (*positions.AccrualStats, error) {
	f.calls++
	f.at = now
	return f.stats, f.err
}

func TestAccrualJobRun(t *testing.T) {
	accruer := &fakeAccruer{stats: &positions.AccrualStats{Accrued: 3, TotalRoi: decimal.RequireFromString("12.5")}}
	job, err := NewAccrualJob(accruer, testLogger())
	if err != nil {
		t.Fatalf("NewAccrualJob: %v", err)
	}
	if job.Name() != "roi-accrual" {
		t.Fatalf("unexpected job name %s", job.Name())
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if accruer.calls != 1 {
		t.Fatalf("expected one accrual pass, got %d", accruer.calls)
	}
	if accruer.at.IsZero() {
		t.Fatal("job must pass the current time to the accruer")
	}
}

func TestAccrualJobPropagatesErrors(t *testing.T) {
	wantErr := errors.New("tier missing")
	accruer := &fakeAccruer{stats: &positions.AccrualStats{TotalRoi: decimal.Zero}, err: wantErr}
	job, err := NewAccrualJob(accruer, testLogger())
	if err != nil {
		t.Fatalf("NewAccrualJob: %v", err)
	}

	if err := job.Run(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected error to propagate, got %v", err)
	}
}
