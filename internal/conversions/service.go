package conversions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vantagefund/wallet-engine/internal/ledger"
	"github.com/vantagefund/wallet-engine/pkg/config"
	"github.com/vantagefund/wallet-engine/pkg/db"
	"github.com/vantagefund/wallet-engine/pkg/db/models"
	"github.com/vantagefund/wallet-engine/pkg/enums"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts USDT balance into USD balance at the configured fee
// schedule. Conversions are single-shot: there is no pending state and no
// reversal.
type Service interface {
	// Preview quotes a conversion without committing anything.
	Preview(ctx context.Context, usdtAmount decimal.Decimal) (*Quote, error)
	Convert(ctx context.Context, input ConvertInput) (*ConvertResult, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversion, error)
}

// ConvertInput identifies the user and the USDT amount to exchange.
type ConvertInput struct {
	UserID     uuid.UUID
	UsdtAmount decimal.Decimal
}

// ConvertResult returns the committed conversion and both post-conversion
// balances.
type ConvertResult struct {
	Conversion  *models.Conversion `json:"conversion"`
	UsdtBalance decimal.Decimal    `json:"usdt_balance"`
	UsdBalance  decimal.Decimal    `json:"usd_balance"`
}

type userLockFn func(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error

type service struct {
	repo     Repository
	tx       txRunner
	ledger   ledger.Service
	schedule config.ConversionConfig
	lock     userLockFn
}

// NewService builds a conversion service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledgerSvc ledger.Service, schedule config.ConversionConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("conversion repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		ledger:   ledgerSvc,
		schedule: schedule,
		lock:     db.AcquireUserLock,
	}, nil
}

func (s *service) Preview(ctx context.Context, usdtAmount decimal.Decimal) (*Quote, error) {
	if !usdtAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usdt amount must be positive")
	}
	quote := ComputeQuote(usdtAmount, s.schedule)
	return &quote, nil
}

func (s *service) Convert(ctx context.Context, input ConvertInput) (*ConvertResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.UsdtAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usdt amount must be positive")
	}

	quote := ComputeQuote(input.UsdtAmount, s.schedule)

	var result *ConvertResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.lock(ctx, tx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire user lock")
		}
		txLedger := s.ledger.WithTx(tx)

		usdtBalance, err := txLedger.Balance(ctx, input.UserID, enums.CurrencyUSDT)
		if err != nil {
			return err
		}
		if usdtBalance.LessThan(input.UsdtAmount) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds,
				fmt.Sprintf("usdt balance %s is below requested %s", usdtBalance, input.UsdtAmount))
		}

		conversion := &models.Conversion{
			UserID:         input.UserID,
			UsdtAmount:     quote.UsdtAmount,
			FxRate:         quote.FxRate,
			MarkupPct:      quote.MarkupPct,
			FeeFixedUsd:    quote.FeeFixedUsd,
			FeePct:         quote.FeePct,
			UsdGross:       quote.UsdGross,
			UsdAfterMarkup: quote.UsdAfterMarkup,
			UsdNet:         quote.UsdNet,
			Status:         enums.ConversionStatusCompleted,
		}
		if err := s.repo.WithTx(tx).Create(ctx, conversion); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create conversion")
		}

		// Both legs commit with the conversion row or not at all.
		if _, err := txLedger.Append(ctx, ledger.AppendInput{
			UserID:   input.UserID,
			Currency: enums.CurrencyUSDT,
			Amount:   input.UsdtAmount.Neg(),
			Reason:   enums.LedgerReasonConversion,
			RefTable: models.Conversion{}.TableName(),
			RefID:    conversion.ID,
		}); err != nil {
			return err
		}
		if quote.UsdNet.IsPositive() {
			if _, err := txLedger.Append(ctx, ledger.AppendInput{
				UserID:   input.UserID,
				Currency: enums.CurrencyUSD,
				Amount:   quote.UsdNet,
				Reason:   enums.LedgerReasonConversion,
				RefTable: models.Conversion{}.TableName(),
				RefID:    conversion.ID,
			}); err != nil {
				return err
			}
		}

		newUsdt, err := txLedger.Balance(ctx, input.UserID, enums.CurrencyUSDT)
		if err != nil {
			return err
		}
		newUsd, err := txLedger.Balance(ctx, input.UserID, enums.CurrencyUSD)
		if err != nil {
			return err
		}
		result = &ConvertResult{Conversion: conversion, UsdtBalance: newUsdt, UsdBalance: newUsd}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversion, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	conversions, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list conversions")
	}
	return conversions, nil
}
