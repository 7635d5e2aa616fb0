package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vantagefund/wallet-engine/pkg/db"
	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
	"github.com/vantagefund/wallet-engine/pkg/pagination"
)

// Service is the only way the engine writes or reads monetary state. Balance
// is always derived from the entry history; no table stores it directly.
type Service interface {
	// WithTx rebinds the service to a transaction so appends commit together
	// with the status transition that caused them.
	WithTx(tx *gorm.DB) Service
	Append(ctx context.Context, input AppendInput) (*models.LedgerEntry, error)
	Balance(ctx context.Context, userID uuid.UUID, currency enums.Currency) (decimal.Decimal, error)
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryPage, error)
}

// refUniqueConstraint guards one ledger entry per (ref, reason, reversal,
// currency); see the ledger_entries migration.
const refUniqueConstraint = "uq_ledger_ref_once"

type service struct {
	repo Repository
}

// AppendInput captures the immutable data a ledger entry requires. Credits are
// positive amounts, debits negative.
type AppendInput struct {
	UserID   uuid.UUID
	Currency enums.Currency
	Amount   decimal.Decimal
	Reason   enums.LedgerReason
	RefTable string
	RefID    uuid.UUID
	Reversal bool
	Meta     json.RawMessage
}

// HistoryPage is one cursor page of a user's ledger history.
type HistoryPage struct {
	Entries    []models.LedgerEntry `json:"entries"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Append(ctx context.Context, input AppendInput) (*models.LedgerEntry, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}
	if input.Amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-zero")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger reason %q", input.Reason))
	}
	if input.RefTable == "" || input.RefID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger entry requires an originating record reference")
	}

	meta := input.Meta
	if input.Reversal && meta == nil {
		meta = json.RawMessage(`{"reversal":true}`)
	}

	entry := &models.LedgerEntry{
		UserID:   input.UserID,
		Currency: input.Currency,
		Amount:   input.Amount,
		Reason:   input.Reason,
		RefTable: input.RefTable,
		RefID:    input.RefID,
		Reversal: input.Reversal,
		Meta:     meta,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		// A second entry for the same (ref, reason, reversal, currency) is a
		// replayed side effect, not a storage fault.
		if db.IsUniqueViolation(err, refUniqueConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "ledger entry already recorded for this reference")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}
	return entry, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID, currency enums.Currency) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !currency.IsValid() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", currency))
	}

	sum, err := s.repo.SumByUserCurrency(ctx, userID, currency)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "materialize balance")
	}
	return sum, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)

	var entries []models.LedgerEntry
	if cursor != nil {
		entries, err = s.repo.ListByUser(ctx, userID, pagination.LimitWithBuffer(params.Limit), &cursor.CreatedAt, &cursor.ID)
	} else {
		entries, err = s.repo.ListByUser(ctx, userID, pagination.LimitWithBuffer(params.Limit), nil, nil)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	page := &HistoryPage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		last := page.Entries[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}
