package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/api/middleware"
	"github.com/vantagefund/wallet-engine/api/responses"
	"github.com/vantagefund/wallet-engine/api/validators"
	"github.com/vantagefund/wallet-engine/internal/deposits"
	"github.com/vantagefund/wallet-engine/pkg/enums"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
	"github.com/vantagefund/wallet-engine/pkg/logger"
	"github.com/vantagefund/wallet-engine/pkg/pagination"
)

type createDepositPayload struct {
	Method         string           `json:"method" validate:"required"`
	Currency       string           `json:"currency" validate:"required"`
	ExpectedAmount decimal.Decimal  `json:"expected_amount" validate:"required"`
	UniqueAmount   *decimal.Decimal `json:"unique_amount,omitempty"`
}

// DepositCreate registers a pending funding request for the caller. No
// balance movement happens until a privileged actor confirms it.
func DepositCreate(svc deposits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _, ok := middleware.ActorFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var payload createDepositPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		currency, err := enums.ParseCurrency(payload.Currency)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
			return
		}

		deposit, err := svc.Create(ctx, deposits.CreateInput{
			UserID:         userID,
			Method:         payload.Method,
			Currency:       currency,
			ExpectedAmount: payload.ExpectedAmount,
			UniqueAmount:   payload.UniqueAmount,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, deposit)
	}
}

// DepositList returns the caller's most recent deposits.
func DepositList(svc deposits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _, ok := middleware.ActorFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.ListByUser(ctx, userID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deposits": list})
	}
}
