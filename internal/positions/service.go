package positions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vantagefund/wallet-engine/internal/audit"
	"github.com/vantagefund/wallet-engine/internal/ledger"
	"github.com/vantagefund/wallet-engine/pkg/db"
	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the position lifecycle: opening against a tier, claiming
// accrued ROI, upgrading principal and merging positions.
type Service interface {
	Open(ctx context.Context, input OpenInput) (*OpenResult, error)
	Claim(ctx context.Context, input ClaimInput) (*ClaimResult, error)
	Upgrade(ctx context.Context, input UpgradeInput) (*UpgradeResult, error)
	Merge(ctx context.Context, input MergeInput) (*MergeResult, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Position, error)
	ListTiers(ctx context.Context) ([]models.Tier, error)
}

// OpenInput funds a new position from the user's USD balance.
type OpenInput struct {
	UserID       uuid.UUID
	TierID       uuid.UUID
	PrincipalUsd decimal.Decimal
}

// OpenResult returns the new position and the balance after the principal
// debit.
type OpenResult struct {
	Position   *models.Position `json:"position"`
	NewBalance decimal.Decimal  `json:"new_balance"`
}

// ClaimInput pays out a position's accrued ROI to the owner's USD balance.
type ClaimInput struct {
	UserID     uuid.UUID
	PositionID uuid.UUID
}

// ClaimResult reports the claimed amount and the balance after the credit.
type ClaimResult struct {
	Position   *models.Position `json:"position"`
	ClaimedUsd decimal.Decimal  `json:"claimed_usd"`
	NewBalance decimal.Decimal  `json:"new_balance"`
}

// UpgradeInput adds principal to an active position from the USD balance.
type UpgradeInput struct {
	UserID     uuid.UUID
	PositionID uuid.UUID
	AmountUsd  decimal.Decimal
}

// UpgradeResult returns the upgraded position and the balance after the
// debit.
type UpgradeResult struct {
	Position   *models.Position `json:"position"`
	NewBalance decimal.Decimal  `json:"new_balance"`
}

// MergeInput combines two or more of the user's active positions into one.
type MergeInput struct {
	UserID      uuid.UUID
	PositionIDs []uuid.UUID
}

// MergeResult returns the merged position. Merging moves principal and
// accrued ROI between positions without touching the ledger.
type MergeResult struct {
	Position *models.Position  `json:"position"`
	Sources  []models.Position `json:"sources"`
}

type userLockFn func(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error

type service struct {
	repo   Repository
	tx     txRunner
	ledger ledger.Service
	audit  audit.Recorder
	now    func() time.Time
	lock   userLockFn
}

// NewService builds a position service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledgerSvc ledger.Service, auditRec audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("position repository required")
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
		lock:   db.AcquireUserLock,
	}, nil
}

func (s *service) Open(ctx context.Context, input OpenInput) (*OpenResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.TierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier id required")
	}
	if !input.PrincipalUsd.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "principal must be positive")
	}

	var result *OpenResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.lock(ctx, tx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire user lock")
		}
		repo := s.repo.WithTx(tx)

		tier, err := repo.FindTierByID(ctx, input.TierID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "tier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tier")
		}
		if input.PrincipalUsd.LessThan(tier.MinAmountUsd) || input.PrincipalUsd.GreaterThan(tier.MaxAmountUsd) {
			return pkgerrors.New(pkgerrors.CodeTierLimit,
				fmt.Sprintf("principal %s is outside tier %s band [%s, %s]",
					input.PrincipalUsd, tier.TierName, tier.MinAmountUsd, tier.MaxAmountUsd))
		}

		txLedger := s.ledger.WithTx(tx)
		balance, err := txLedger.Balance(ctx, input.UserID, enums.CurrencyUSD)
		if err != nil {
			return err
		}
		if balance.LessThan(input.PrincipalUsd) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds,
				fmt.Sprintf("usd balance %s is below principal %s", balance, input.PrincipalUsd))
		}

		now := s.now().UTC()
		position := &models.Position{
			UserID:        input.UserID,
			TierID:        tier.ID,
			PrincipalUsd:  input.PrincipalUsd,
			StartedAt:     now,
			MaturesAt:     now.AddDate(0, 0, tier.MaturityDays),
			LastAccruedAt: now,
			AccruedRoiUsd: decimal.Zero,
			Status:        enums.PositionStatusActive,
		}
		if err := repo.Create(ctx, position); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create position")
		}

		if _, err := txLedger.Append(ctx, ledger.AppendInput{
			UserID:   input.UserID,
			Currency: enums.CurrencyUSD,
			Amount:   input.PrincipalUsd.Neg(),
			Reason:   enums.LedgerReasonPositionOpen,
			RefTable: models.Position{}.TableName(),
			RefID:    position.ID,
		}); err != nil {
			return err
		}

		newBalance, err := txLedger.Balance(ctx, input.UserID, enums.CurrencyUSD)
		if err != nil {
			return err
		}
		result = &OpenResult{Position: position, NewBalance: newBalance}

		return s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			ActorUserID:  input.UserID,
			ActorRole:    enums.RoleUser,
			Action:       "position.open",
			TargetUserID: input.UserID,
			After:        positionSnapshot(position),
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Claim(ctx context.Context, input ClaimInput) (*ClaimResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.PositionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "position id required")
	}

	var result *ClaimResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.lock(ctx, tx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire user lock")
		}
		repo := s.repo.WithTx(tx)

		position, err := s.ownedPosition(ctx, repo, input.PositionID, input.UserID)
		if err != nil {
			return err
		}
		if position.Status != enums.PositionStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot claim from a %s position", position.Status))
		}
		if position.AccruedRoiUsd.IsZero() {
			return pkgerrors.New(pkgerrors.CodeNoRoiToClaim, "position has no accrued ROI to claim")
		}

		amount := position.AccruedRoiUsd
		applied, err := repo.ClaimAccrued(ctx, position.ID, amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "zero accrued ROI")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "accrued ROI changed concurrently, retry")
		}

		claim := &models.RoiClaim{
			PositionID: position.ID,
			UserID:     input.UserID,
			AmountUsd:  amount,
		}
		if err := repo.CreateClaim(ctx, claim); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create claim record")
		}

		txLedger := s.ledger.WithTx(tx)
		if _, err := txLedger.Append(ctx, ledger.AppendInput{
			UserID:   input.UserID,
			Currency: enums.CurrencyUSD,
			Amount:   amount,
			Reason:   enums.LedgerReasonRoiClaim,
			RefTable: models.RoiClaim{}.TableName(),
			RefID:    claim.ID,
		}); err != nil {
			return err
		}

		newBalance, err := txLedger.Balance(ctx, input.UserID, enums.CurrencyUSD)
		if err != nil {
			return err
		}

		position.AccruedRoiUsd = decimal.Zero
		result = &ClaimResult{Position: position, ClaimedUsd: amount, NewBalance: newBalance}

		return s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			ActorUserID:  input.UserID,
			ActorRole:    enums.RoleUser,
			Action:       "position.claim",
			TargetUserID: input.UserID,
			After:        claim,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Upgrade(ctx context.Context, input UpgradeInput) (*UpgradeResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.PositionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "position id required")
	}
	if !input.AmountUsd.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upgrade amount must be positive")
	}

	var result *UpgradeResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.lock(ctx, tx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire user lock")
		}
		repo := s.repo.WithTx(tx)

		position, err := s.ownedPosition(ctx, repo, input.PositionID, input.UserID)
		if err != nil {
			return err
		}
		if position.Status != enums.PositionStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot upgrade a %s position", position.Status))
		}

		tier, err := repo.FindTierByID(ctx, position.TierID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tier")
		}
		newPrincipal := position.PrincipalUsd.Add(input.AmountUsd)
		if newPrincipal.GreaterThan(tier.MaxAmountUsd) {
			return pkgerrors.New(pkgerrors.CodeTierLimit,
				fmt.Sprintf("principal %s would exceed tier %s maximum %s",
					newPrincipal, tier.TierName, tier.MaxAmountUsd))
		}

		txLedger := s.ledger.WithTx(tx)
		balance, err := txLedger.Balance(ctx, input.UserID, enums.CurrencyUSD)
		if err != nil {
			return err
		}
		if balance.LessThan(input.AmountUsd) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds,
				fmt.Sprintf("usd balance %s is below upgrade amount %s", balance, input.AmountUsd))
		}

		upgrade := &models.PositionUpgrade{
			PositionID: position.ID,
			UserID:     input.UserID,
			AmountUsd:  input.AmountUsd,
		}
		if err := repo.CreateUpgrade(ctx, upgrade); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create upgrade record")
		}

		before := positionSnapshot(position)
		position.PrincipalUsd = newPrincipal
		if err := repo.Update(ctx, position); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update position principal")
		}

		if _, err := txLedger.Append(ctx, ledger.AppendInput{
			UserID:   input.UserID,
			Currency: enums.CurrencyUSD,
			Amount:   input.AmountUsd.Neg(),
			Reason:   enums.LedgerReasonPositionUpgrade,
			RefTable: models.PositionUpgrade{}.TableName(),
			RefID:    upgrade.ID,
		}); err != nil {
			return err
		}

		newBalance, err := txLedger.Balance(ctx, input.UserID, enums.CurrencyUSD)
		if err != nil {
			return err
		}
		result = &UpgradeResult{Position: position, NewBalance: newBalance}

		return s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			ActorUserID:  input.UserID,
			ActorRole:    enums.RoleUser,
			Action:       "position.upgrade",
			TargetUserID: input.UserID,
			Before:       before,
			After:        positionSnapshot(position),
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Merge(ctx context.Context, input MergeInput) (*MergeResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.PositionIDs) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merge requires at least two positions")
	}
	seen := map[uuid.UUID]struct{}{}
	for _, id := range input.PositionIDs {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "position id required")
		}
		if _, dup := seen[id]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate position id in merge set")
		}
		seen[id] = struct{}{}
	}

	var result *MergeResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.lock(ctx, tx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire user lock")
		}
		repo := s.repo.WithTx(tx)

		sources, err := repo.FindByIDsForUser(ctx, input.PositionIDs, input.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load positions")
		}
		if len(sources) != len(input.PositionIDs) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "one or more positions not found")
		}

		principal := decimal.Zero
		accrued := decimal.Zero
		for _, source := range sources {
			if source.Status != enums.PositionStatusActive {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("position %s is %s, only active positions merge", source.ID, source.Status))
			}
			principal = principal.Add(source.PrincipalUsd)
			accrued = accrued.Add(source.AccruedRoiUsd)
		}

		tier, err := repo.FindTierForAmount(ctx, principal)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeTierLimit,
					fmt.Sprintf("no tier admits combined principal %s", principal))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve tier for merge")
		}

		// Principal and accrued ROI move between positions; the ledger is
		// untouched because the user's balance does not change.
		now := s.now().UTC()
		merged := &models.Position{
			UserID:        input.UserID,
			TierID:        tier.ID,
			PrincipalUsd:  principal,
			StartedAt:     now,
			MaturesAt:     now.AddDate(0, 0, tier.MaturityDays),
			LastAccruedAt: now,
			AccruedRoiUsd: accrued,
			Status:        enums.PositionStatusActive,
		}
		if err := repo.Create(ctx, merged); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create merged position")
		}

		for i := range sources {
			source := &sources[i]
			source.Status = enums.PositionStatusMerged
			source.MergedIntoID = &merged.ID
			source.AccruedRoiUsd = decimal.Zero
			if err := repo.Update(ctx, source); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close merged source")
			}
		}
		result = &MergeResult{Position: merged, Sources: sources}

		return s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			ActorUserID:  input.UserID,
			ActorRole:    enums.RoleUser,
			Action:       "position.merge",
			TargetUserID: input.UserID,
			Before:       input.PositionIDs,
			After:        positionSnapshot(merged),
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Position, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	positions, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list positions")
	}
	return positions, nil
}

func (s *service) ListTiers(ctx context.Context) ([]models.Tier, error) {
	tiers, err := s.repo.ListTiers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tiers")
	}
	return tiers, nil
}

func (s *service) ownedPosition(ctx context.Context, repo Repository, id, userID uuid.UUID) (*models.Position, error) {
	position, err := repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "position not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load position")
	}
	if position.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "position not found")
	}
	return position, nil
}

type positionView struct {
	ID            uuid.UUID            `json:"id"`
	TierID        uuid.UUID            `json:"tier_id"`
	PrincipalUsd  decimal.Decimal      `json:"principal_usd"`
	AccruedRoiUsd decimal.Decimal      `json:"accrued_roi_usd"`
	Status        enums.PositionStatus `json:"status"`
}

func positionSnapshot(position *models.Position) positionView {
	return positionView{
		ID:            position.ID,
		TierID:        position.TierID,
		PrincipalUsd:  position.PrincipalUsd,
		AccruedRoiUsd: position.AccruedRoiUsd,
		Status:        position.Status,
	}
}
