package withdrawals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vantagefund/wallet-engine/internal/audit"
	"github.com/vantagefund/wallet-engine/internal/ledger"
	"github.com/vantagefund/wallet-engine/pkg/config"
	"github.com/vantagefund/wallet-engine/pkg/db"
	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
)

var oneHundred = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the withdrawal lifecycle. Creation reserves funds
// immediately; approval is bookkeeping only and rejection refunds the
// reservation.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	Decide(ctx context.Context, input DecideInput) (*DecideResult, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Withdrawal, error)

	CreateMethod(ctx context.Context, input CreateMethodInput) (*models.WithdrawalMethod, error)
	ListMethods(ctx context.Context, userID uuid.UUID) ([]models.WithdrawalMethod, error)
}

// Decision is the privileged action taken on a pending withdrawal.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// CreateInput captures a user's payout request against one of their methods.
type CreateInput struct {
	UserID   uuid.UUID
	MethodID uuid.UUID
	Currency enums.Currency
	Amount   decimal.Decimal
}

// CreateResult returns the pending withdrawal and the balance after the
// reservation debit.
type CreateResult struct {
	Withdrawal *models.Withdrawal `json:"withdrawal"`
	NewBalance decimal.Decimal    `json:"new_balance"`
}

// DecideInput carries a privileged decision and its actor.
type DecideInput struct {
	WithdrawalID uuid.UUID
	Decision     Decision
	Reason       *string
	ActorUserID  uuid.UUID
	ActorRole    enums.Role
}

// DecideResult reports the (possibly pre-existing) terminal state. Applied is
// false when the decision had already been made and this call was a no-op.
type DecideResult struct {
	Withdrawal *models.Withdrawal `json:"withdrawal"`
	Applied    bool               `json:"applied"`
	NewBalance *decimal.Decimal   `json:"new_balance,omitempty"`
}

// CreateMethodInput registers a payout destination for a user.
type CreateMethodInput struct {
	UserID  uuid.UUID
	Method  string
	Label   string
	Details json.RawMessage
	FeePct  decimal.Decimal
}

type userLockFn func(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error

type service struct {
	repo   Repository
	tx     txRunner
	ledger ledger.Service
	audit  audit.Recorder
	caps   config.WithdrawalsConfig
	now    func() time.Time
	lock   userLockFn
}

// NewService builds a withdrawal service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledgerSvc ledger.Service, auditRec audit.Recorder, caps config.WithdrawalsConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("withdrawal repository required")
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
		caps:   caps,
		now:    time.Now,
		lock:   db.AcquireUserLock,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.MethodID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal method id required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var result *CreateResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// Serialize against the user's other balance-consuming writes so the
		// balance and cap checks below cannot race a concurrent request.
		if err := s.lock(ctx, tx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire user lock")
		}
		repo := s.repo.WithTx(tx)

		method, err := repo.FindMethodForUser(ctx, input.MethodID, input.UserID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal method not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal method")
		}

		fee := input.Amount.Mul(method.FeePct).Div(oneHundred)
		total := input.Amount.Add(fee)

		now := s.now().UTC()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.Add(24 * time.Hour)

		volume, err := repo.SumDailyVolume(ctx, input.UserID, input.Currency, dayStart, dayEnd)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum daily withdrawal volume")
		}
		cap := s.capFor(input.Currency)
		if volume.Add(total).GreaterThan(cap) {
			return pkgerrors.New(pkgerrors.CodeDailyCapExceeded,
				fmt.Sprintf("daily withdrawal cap of %s %s exceeded", cap, input.Currency))
		}

		txLedger := s.ledger.WithTx(tx)
		balance, err := txLedger.Balance(ctx, input.UserID, input.Currency)
		if err != nil {
			return err
		}
		if balance.LessThan(total) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds,
				fmt.Sprintf("balance %s is below requested %s plus fee %s", balance, input.Amount, fee))
		}

		withdrawal := &models.Withdrawal{
			UserID:    input.UserID,
			Currency:  input.Currency,
			Amount:    input.Amount,
			FeeAmount: fee,
			Method:    method.Method,
			MethodID:  method.ID,
			Status:    enums.WithdrawalStatusPending,
		}
		if err := repo.Create(ctx, withdrawal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal")
		}

		// Reserve the funds in the same transaction as the insert.
		if _, err := txLedger.Append(ctx, ledger.AppendInput{
			UserID:   input.UserID,
			Currency: input.Currency,
			Amount:   total.Neg(),
			Reason:   enums.LedgerReasonWithdrawal,
			RefTable: models.Withdrawal{}.TableName(),
			RefID:    withdrawal.ID,
		}); err != nil {
			return err
		}

		newBalance, err := txLedger.Balance(ctx, input.UserID, input.Currency)
		if err != nil {
			return err
		}
		result = &CreateResult{Withdrawal: withdrawal, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Decide(ctx context.Context, input DecideInput) (*DecideResult, error) {
	if input.WithdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !input.ActorRole.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "withdrawal decisions require support or superadmin role")
	}

	target, err := mapDecisionToStatus(input.Decision)
	if err != nil {
		return nil, err
	}

	var result *DecideResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		withdrawal, err := repo.FindByID(ctx, input.WithdrawalID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal")
		}

		// Re-decision toward the same terminal state is a no-op, not an error.
		if withdrawal.Status == target {
			result = &DecideResult{Withdrawal: withdrawal, Applied: false}
			return nil
		}
		if withdrawal.Status != enums.WithdrawalStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("withdrawal already %s", withdrawal.Status))
		}

		before := statusSnapshot{Status: withdrawal.Status}
		now := s.now().UTC()
		updates := map[string]any{
			"decided_at": now,
			"decided_by": input.ActorUserID,
		}
		if input.Decision == DecisionReject && input.Reason != nil {
			updates["rejection_reason"] = *input.Reason
		}

		applied, err := repo.TransitionStatus(ctx, withdrawal.ID, enums.WithdrawalStatusPending, target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition withdrawal status")
		}
		if !applied {
			current, err := repo.FindByID(ctx, withdrawal.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload withdrawal")
			}
			if current.Status == target {
				result = &DecideResult{Withdrawal: current, Applied: false}
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("withdrawal already %s", current.Status))
		}

		updated, err := repo.FindByID(ctx, withdrawal.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload withdrawal")
		}
		result = &DecideResult{Withdrawal: updated, Applied: true}

		if target == enums.WithdrawalStatusRejected {
			// Refund the reservation made at creation. The reversal flag keeps
			// this credit distinct from the original debit under the ledger's
			// replay-safety constraint.
			txLedger := s.ledger.WithTx(tx)
			if _, err := txLedger.Append(ctx, ledger.AppendInput{
				UserID:   withdrawal.UserID,
				Currency: withdrawal.Currency,
				Amount:   withdrawal.Amount.Add(withdrawal.FeeAmount),
				Reason:   enums.LedgerReasonWithdrawal,
				RefTable: models.Withdrawal{}.TableName(),
				RefID:    withdrawal.ID,
				Reversal: true,
			}); err != nil {
				return err
			}
			balance, err := txLedger.Balance(ctx, withdrawal.UserID, withdrawal.Currency)
			if err != nil {
				return err
			}
			result.NewBalance = &balance
		}

		return s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			ActorUserID:  input.ActorUserID,
			ActorRole:    input.ActorRole,
			Action:       fmt.Sprintf("withdrawal.%s", input.Decision),
			TargetUserID: withdrawal.UserID,
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

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Withdrawal, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	withdrawals, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawals")
	}
	return withdrawals, nil
}

func (s *service) CreateMethod(ctx context.Context, input CreateMethodInput) (*models.WithdrawalMethod, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Method == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "method type is required")
	}
	if input.Label == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "method label is required")
	}
	if input.FeePct.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fee percentage must be non-negative")
	}

	method := &models.WithdrawalMethod{
		UserID:  input.UserID,
		Method:  input.Method,
		Label:   input.Label,
		Details: input.Details,
		FeePct:  input.FeePct,
	}
	if err := s.repo.CreateMethod(ctx, method); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal method")
	}
	return method, nil
}

func (s *service) ListMethods(ctx context.Context, userID uuid.UUID) ([]models.WithdrawalMethod, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	methods, err := s.repo.ListMethodsForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawal methods")
	}
	return methods, nil
}

func (s *service) capFor(currency enums.Currency) decimal.Decimal {
	if currency == enums.CurrencyUSDT {
		return s.caps.DailyCapUSDT
	}
	return s.caps.DailyCapUSD
}

type statusSnapshot struct {
	Status enums.WithdrawalStatus `json:"status"`
}

func mapDecisionToStatus(decision Decision) (enums.WithdrawalStatus, error) {
	switch decision {
	case DecisionApprove:
		return enums.WithdrawalStatusApproved, nil
	case DecisionReject:
		return enums.WithdrawalStatusRejected, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "decision must be approve or reject")
	}
}
