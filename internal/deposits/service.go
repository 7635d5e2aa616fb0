package deposits

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vantagefund/wallet-engine/internal/audit"
	"github.com/vantagefund/wallet-engine/internal/ledger"
	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the deposit lifecycle: user-facing creation and the
// privileged, idempotent confirm/reject decision.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Deposit, error)
	Decide(ctx context.Context, input DecideInput) (*DecideResult, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Deposit, error)
}

// Decision is the privileged action taken on a pending deposit.
type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionReject  Decision = "reject"
)

// CreateInput captures a user's funding request. No ledger effect happens
// here; credits only appear when the deposit is confirmed.
type CreateInput struct {
	UserID         uuid.UUID
	Method         string
	Currency       enums.Currency
	ExpectedAmount decimal.Decimal
	UniqueAmount   *decimal.Decimal
}

// DecideInput carries a privileged decision and its actor.
type DecideInput struct {
	DepositID    uuid.UUID
	Decision     Decision
	ActualAmount *decimal.Decimal
	Reason       *string
	ActorUserID  uuid.UUID
	ActorRole    enums.Role
}

// DecideResult reports the (possibly pre-existing) terminal state. Applied is
// false when the decision had already been made and this call was a no-op.
type DecideResult struct {
	Deposit    *models.Deposit  `json:"deposit"`
	Applied    bool             `json:"applied"`
	NewBalance *decimal.Decimal `json:"new_balance,omitempty"`
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger ledger.Service
	audit  audit.Recorder
	now    func() time.Time
}

// NewService builds a deposit service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledgerSvc ledger.Service, auditRec audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deposit repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if auditRec == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		ledger: ledgerSvc,
		audit:  auditRec,
		now:    time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Deposit, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Method == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit method is required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}
	if !input.ExpectedAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expected amount must be positive")
	}
	if input.UniqueAmount != nil && !input.UniqueAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unique amount must be positive")
	}

	deposit := &models.Deposit{
		UserID:         input.UserID,
		Method:         input.Method,
		Currency:       input.Currency,
		ExpectedAmount: input.ExpectedAmount,
		UniqueAmount:   input.UniqueAmount,
		Status:         enums.DepositStatusPending,
	}
	if err := s.repo.Create(ctx, deposit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create deposit")
	}
	return deposit, nil
}

func (s *service) Decide(ctx context.Context, input DecideInput) (*DecideResult, error) {
	if input.DepositID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !input.ActorRole.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "deposit decisions require support or superadmin role")
	}

	target, err := mapDecisionToStatus(input.Decision)
	if err != nil {
		return nil, err
	}
	if input.Decision == DecisionConfirm && input.ActualAmount != nil && !input.ActualAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actual amount must be positive")
	}

	var result *DecideResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		deposit, err := repo.FindByID(ctx, input.DepositID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "deposit not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deposit")
		}

		// Re-decision toward the same terminal state is a no-op, not an error.
		if deposit.Status == target {
			result = &DecideResult{Deposit: deposit, Applied: false}
			return nil
		}
		if deposit.Status != enums.DepositStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("deposit already %s", deposit.Status))
		}

		before := statusSnapshot{Status: deposit.Status}
		now := s.now().UTC()
		updates := s.decisionUpdates(input, now)

		applied, err := repo.TransitionStatus(ctx, deposit.ID, enums.DepositStatusPending, target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition deposit status")
		}
		if !applied {
			// Lost the race: someone else decided first. Re-read and report
			// their outcome instead of re-applying side effects.
			current, err := repo.FindByID(ctx, deposit.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload deposit")
			}
			if current.Status == target {
				result = &DecideResult{Deposit: current, Applied: false}
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("deposit already %s", current.Status))
		}

		updated, err := repo.FindByID(ctx, deposit.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload deposit")
		}
		result = &DecideResult{Deposit: updated, Applied: true}

		if target == enums.DepositStatusConfirmed {
			amount := deposit.ExpectedAmount
			if input.ActualAmount != nil {
				amount = *input.ActualAmount
			}
			txLedger := s.ledger.WithTx(tx)
			if _, err := txLedger.Append(ctx, ledger.AppendInput{
				UserID:   deposit.UserID,
				Currency: deposit.Currency,
				Amount:   amount,
				Reason:   enums.LedgerReasonDeposit,
				RefTable: models.Deposit{}.TableName(),
				RefID:    deposit.ID,
			}); err != nil {
				return err
			}
			balance, err := txLedger.Balance(ctx, deposit.UserID, deposit.Currency)
			if err != nil {
				return err
			}
			result.NewBalance = &balance
		}

		return s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			ActorUserID:  input.ActorUserID,
			ActorRole:    input.ActorRole,
			Action:       fmt.Sprintf("deposit.%s", input.Decision),
			TargetUserID: deposit.UserID,
			Before:       before,
			After:        statusSnapshot{Status: target},
			Reason:       input.Reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Deposit, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	deposits, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deposits")
	}
	return deposits, nil
}

func (s *service) decisionUpdates(input DecideInput, now time.Time) map[string]any {
	switch input.Decision {
	case DecisionConfirm:
		updates := map[string]any{
			"confirmed_at": now,
			"confirmed_by": input.ActorUserID,
		}
		if input.ActualAmount != nil {
			updates["actual_amount"] = *input.ActualAmount
		}
		return updates
	case DecisionReject:
		updates := map[string]any{
			"rejected_at": now,
			"rejected_by": input.ActorUserID,
		}
		if input.Reason != nil {
			updates["rejection_reason"] = *input.Reason
		}
		return updates
	default:
		return nil
	}
}

type statusSnapshot struct {
	Status enums.DepositStatus `json:"status"`
}

func mapDecisionToStatus(decision Decision) (enums.DepositStatus, error) {
	switch decision {
	case DecisionConfirm:
		return enums.DepositStatusConfirmed, nil
	case DecisionReject:
		return enums.DepositStatusRejected, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "decision must be confirm or reject")
	}
}
