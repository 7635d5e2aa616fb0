package positions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
)

func newTestAccruer(t *testing.T) (Accruer, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	acc, err := NewAccruer(repo)
	if err != nil {
		t.Fatalf("NewAccruer: %v", err)
	}
	return acc, repo
}

func accruablePosition(repo *fakeRepo, tier *models.Tier, principal string, lastAccrued, maturesAt time.Time) *models.Position {
	position := &models.Position{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		TierID:        tier.ID,
		PrincipalUsd:  decimal.RequireFromString(principal),
		StartedAt:     lastAccrued,
		MaturesAt:     maturesAt,
		LastAccruedAt: lastAccrued,
		AccruedRoiUsd: decimal.Zero,
		Status:        enums.PositionStatusActive,
	}
	repo.positions[position.ID] = position
	return position
}

func TestAccrueFullDay(t *testing.T) {
	acc, repo := newTestAccruer(t)
	tier := repo.seedTier("growth", "100", "5000", "1", 90)
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	position := accruablePosition(repo, tier, "1000", now.Add(-24*time.Hour), now.AddDate(0, 0, 60))

	stats, err := acc.Accrue(context.Background(), now)
	if err != nil {
		t.Fatalf("Accrue: %v", err)
	}
	if stats.Accrued != 1 || stats.Matured != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	got := repo.positions[position.ID]
	if !got.AccruedRoiUsd.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected 10 USD for a full day at 1%% on 1000, got %s", got.AccruedRoiUsd)
	}
	if !got.LastAccruedAt.Equal(now) {
		t.Fatalf("expected last accrual at %s, got %s", now, got.LastAccruedAt)
	}
}

func TestAccrueProRatesPartialDay(t *testing.T) {
	acc, repo := newTestAccruer(t)
	tier := repo.seedTier("growth", "100", "5000", "1", 90)
	now := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	position := accruablePosition(repo, tier, "1000", now.Add(-6*time.Hour), now.AddDate(0, 0, 60))

	if _, err := acc.Accrue(context.Background(), now); err != nil {
		t.Fatalf("Accrue: %v", err)
	}
	got := repo.positions[position.ID]
	if !got.AccruedRoiUsd.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("expected 2.5 USD for six hours, got %s", got.AccruedRoiUsd)
	}
}

func TestAccrueSubHourIntervalIsExact(t *testing.T) {
	acc, repo := newTestAccruer(t)
	tier := repo.seedTier("growth", "100", "5000", "1", 90)
	now := time.Date(2026, 3, 2, 1, 30, 0, 0, time.UTC)
	position := accruablePosition(repo, tier, "1000", now.Add(-90*time.Minute), now.AddDate(0, 0, 60))

	if _, err := acc.Accrue(context.Background(), now); err != nil {
		t.Fatalf("Accrue: %v", err)
	}
	// 90 minutes at 1% daily on 1000: 10 * 1.5/24 = 0.625, exactly.
	got := repo.positions[position.ID]
	if !got.AccruedRoiUsd.Equal(decimal.RequireFromString("0.625")) {
		t.Fatalf("expected exactly 0.625 for ninety minutes, got %s", got.AccruedRoiUsd)
	}
}

func TestAccrueStopsAtMaturity(t *testing.T) {
	acc, repo := newTestAccruer(t)
	tier := repo.seedTier("growth", "100", "5000", "1", 90)
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	// Matured twelve hours ago; only twelve accruable hours remain.
	maturesAt := now.Add(-12 * time.Hour)
	position := accruablePosition(repo, tier, "1000", now.Add(-24*time.Hour), maturesAt)

	stats, err := acc.Accrue(context.Background(), now)
	if err != nil {
		t.Fatalf("Accrue: %v", err)
	}
	if stats.Matured != 1 {
		t.Fatalf("expected one matured position, stats %+v", stats)
	}
	got := repo.positions[position.ID]
	if got.Status != enums.PositionStatusMatured {
		t.Fatalf("expected matured status, got %s", got.Status)
	}
	if !got.AccruedRoiUsd.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("expected 5 USD for the half day before maturity, got %s", got.AccruedRoiUsd)
	}
	if !got.LastAccruedAt.Equal(maturesAt) {
		t.Fatalf("accrual clock must stop at maturity, got %s", got.LastAccruedAt)
	}
}

func TestAccrueNeverDoubleCounts(t *testing.T) {
	acc, repo := newTestAccruer(t)
	tier := repo.seedTier("growth", "100", "5000", "1", 90)
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	position := accruablePosition(repo, tier, "1000", now.Add(-24*time.Hour), now.AddDate(0, 0, 60))

	if _, err := acc.Accrue(context.Background(), now); err != nil {
		t.Fatalf("first Accrue: %v", err)
	}
	stats, err := acc.Accrue(context.Background(), now)
	if err != nil {
		t.Fatalf("second Accrue: %v", err)
	}
	if stats.Accrued != 0 {
		t.Fatalf("second pass at the same instant must accrue nothing, stats %+v", stats)
	}
	got := repo.positions[position.ID]
	if !got.AccruedRoiUsd.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("accrued ROI changed on replay: %s", got.AccruedRoiUsd)
	}
}

func TestAccrueSkipsNonActive(t *testing.T) {
	acc, repo := newTestAccruer(t)
	tier := repo.seedTier("growth", "100", "5000", "1", 90)
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	position := accruablePosition(repo, tier, "1000", now.Add(-24*time.Hour), now.AddDate(0, 0, 60))
	position.Status = enums.PositionStatusMerged

	stats, err := acc.Accrue(context.Background(), now)
	if err != nil {
		t.Fatalf("Accrue: %v", err)
	}
	if stats.Scanned != 0 {
		t.Fatalf("merged positions must not be scanned, stats %+v", stats)
	}
}
