package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
	"github.com/vantagefund/wallet-engine/pkg/pagination"
)

type fakeRepository struct {
	createFn func(ctx context.Context, entry *models.LedgerEntry) error
	sumFn    func(ctx context.Context, userID uuid.UUID, currency enums.Currency) (decimal.Decimal, error)
	listFn   func(ctx context.Context, userID uuid.UUID, limit int, before *time.Time, beforeID *uuid.UUID) ([]models.LedgerEntry, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if f.createFn != nil {
		return f.createFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) SumByUserCurrency(ctx context.Context, userID uuid.UUID, currency enums.Currency) (decimal.Decimal, error) {
	if f.sumFn != nil {
		return f.sumFn(ctx, userID, currency)
	}
	return decimal.Zero, nil
}

func (f *fakeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, before *time.Time, beforeID *uuid.UUID) ([]models.LedgerEntry, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID, limit, before, beforeID)
	}
	return nil, nil
}

func (f *fakeRepository) ListByRef(ctx context.Context, refTable string, refID uuid.UUID) ([]models.LedgerEntry, error) {
	return nil, nil
}

func TestService_Append(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	input := AppendInput{
		UserID:   uuid.New(),
		Currency: enums.CurrencyUSD,
		Amount:   decimal.RequireFromString("125.50"),
		Reason:   enums.LedgerReasonDeposit,
		RefTable: "deposits",
		RefID:    uuid.New(),
	}

	var created *models.LedgerEntry
	repo.createFn = func(ctx context.Context, entry *models.LedgerEntry) error {
		created = entry
		return nil
	}

	got, err := svc.Append(context.Background(), input)
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if created == nil {
		t.Fatal("expected ledger entry to be created")
	}
	if created.UserID != input.UserID || created.Reason != input.Reason || !created.Amount.Equal(input.Amount) {
		t.Fatalf("unexpected ledger entry data: %+v", created)
	}
	if created.RefTable != "deposits" || created.RefID != input.RefID {
		t.Fatalf("missing ref metadata: %+v", created)
	}
	if got != created {
		t.Fatal("service should return created entry")
	}
}

func TestService_AppendReversalGetsMetaFlag(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	var created *models.LedgerEntry
	repo.createFn = func(ctx context.Context, entry *models.LedgerEntry) error {
		created = entry
		return nil
	}

	_, err := svc.Append(context.Background(), AppendInput{
		UserID:   uuid.New(),
		Currency: enums.CurrencyUSD,
		Amount:   decimal.RequireFromString("50"),
		Reason:   enums.LedgerReasonWithdrawal,
		RefTable: "withdrawals",
		RefID:    uuid.New(),
		Reversal: true,
	})
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if !created.Reversal {
		t.Fatal("reversal flag not set on entry")
	}
	if string(created.Meta) != `{"reversal":true}` {
		t.Fatalf("expected reversal meta, got %s", created.Meta)
	}
}

func TestService_AppendReplayedRefIsStateConflict(t *testing.T) {
	repo := &fakeRepository{
		createFn: func(ctx context.Context, entry *models.LedgerEntry) error {
			return fmt.Errorf("insert ledger entry: %w", &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "uq_ledger_ref_once",
			})
		},
	}
	svc, _ := NewService(repo)

	_, err := svc.Append(context.Background(), AppendInput{
		UserID:   uuid.New(),
		Currency: enums.CurrencyUSD,
		Amount:   decimal.RequireFromString("100"),
		Reason:   enums.LedgerReasonDeposit,
		RefTable: "deposits",
		RefID:    uuid.New(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict for a replayed reference, got %v", err)
	}
}

func TestService_AppendOtherRepoErrorIsDependency(t *testing.T) {
	repo := &fakeRepository{
		createFn: func(ctx context.Context, entry *models.LedgerEntry) error {
			return errors.New("connection reset")
		},
	}
	svc, _ := NewService(repo)

	_, err := svc.Append(context.Background(), AppendInput{
		UserID:   uuid.New(),
		Currency: enums.CurrencyUSD,
		Amount:   decimal.RequireFromString("100"),
		Reason:   enums.LedgerReasonDeposit,
		RefTable: "deposits",
		RefID:    uuid.New(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_AppendValidation(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	valid := AppendInput{
		UserID:   uuid.New(),
		Currency: enums.CurrencyUSDT,
		Amount:   decimal.RequireFromString("10"),
		Reason:   enums.LedgerReasonConversion,
		RefTable: "conversions",
		RefID:    uuid.New(),
	}

	tests := []struct {
		name   string
		mutate func(*AppendInput)
	}{
		{"missing user", func(in *AppendInput) { in.UserID = uuid.Nil }},
		{"invalid currency", func(in *AppendInput) { in.Currency = enums.Currency("EUR") }},
		{"zero amount", func(in *AppendInput) { in.Amount = decimal.Zero }},
		{"unknown reason", func(in *AppendInput) { in.Reason = enums.LedgerReason("bonus") }},
		{"missing ref table", func(in *AppendInput) { in.RefTable = "" }},
		{"missing ref id", func(in *AppendInput) { in.RefID = uuid.Nil }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			_, err := svc.Append(context.Background(), input)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_BalanceZeroForEmptyHistory(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	balance, err := svc.Balance(context.Background(), uuid.New(), enums.CurrencyUSD)
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", balance)
	}
}

func TestService_BalanceSumsEntries(t *testing.T) {
	repo := &fakeRepository{
		sumFn: func(ctx context.Context, userID uuid.UUID, currency enums.Currency) (decimal.Decimal, error) {
			return decimal.RequireFromString("42.75"), nil
		},
	}
	svc, _ := NewService(repo)

	balance, err := svc.Balance(context.Background(), uuid.New(), enums.CurrencyUSDT)
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("42.75")) {
		t.Fatalf("unexpected balance %s", balance)
	}
}

func TestService_BalanceRepoError(t *testing.T) {
	repo := &fakeRepository{
		sumFn: func(ctx context.Context, userID uuid.UUID, currency enums.Currency) (decimal.Decimal, error) {
			return decimal.Zero, errors.New("connection reset")
		},
	}
	svc, _ := NewService(repo)

	_, err := svc.Balance(context.Background(), uuid.New(), enums.CurrencyUSD)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_HistoryPaginates(t *testing.T) {
	now := time.Now()
	entries := make([]models.LedgerEntry, 0, 6)
	for i := 0; i < 6; i++ {
		entries = append(entries, models.LedgerEntry{
			ID:        uuid.New(),
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		})
	}

	repo := &fakeRepository{
		listFn: func(ctx context.Context, userID uuid.UUID, limit int, before *time.Time, beforeID *uuid.UUID) ([]models.LedgerEntry, error) {
			if limit < len(entries) {
				return entries[:limit], nil
			}
			return entries, nil
		},
	}
	svc, _ := NewService(repo)

	page, err := svc.History(context.Background(), uuid.New(), pagination.Params{Limit: 5})
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(page.Entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(page.Entries))
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor when more rows exist")
	}

	cursor, err := pagination.ParseCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("cursor should round-trip: %v", err)
	}
	if cursor.ID != page.Entries[4].ID {
		t.Fatal("cursor should point at the last returned entry")
	}
}
