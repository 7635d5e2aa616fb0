package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/api/middleware"
	"github.com/vantagefund/wallet-engine/api/responses"
	"github.com/vantagefund/wallet-engine/api/validators"
	"github.com/vantagefund/wallet-engine/internal/conversions"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
	"github.com/vantagefund/wallet-engine/pkg/logger"
	"github.com/vantagefund/wallet-engine/pkg/pagination"
)

type convertPayload struct {
	UsdtAmount decimal.Decimal `json:"usdt_amount" validate:"required"`
}

// ConversionQuote prices a USDT to USD conversion without committing it.
func ConversionQuote(svc conversions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload convertPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		quote, err := svc.Preview(ctx, payload.UsdtAmount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// ConversionCreate exchanges USDT balance for USD balance at the configured
// schedule. There is no pending state; the result is final.
func ConversionCreate(svc conversions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _, ok := middleware.ActorFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var payload convertPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Convert(ctx, conversions.ConvertInput{
			UserID:     userID,
			UsdtAmount: payload.UsdtAmount,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ConversionList returns the caller's most recent conversions.
func ConversionList(svc conversions.Service, logg *logger.Logger) http.HandlerFunc {
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
		responses.WriteSuccess(w, map[string]any{"conversions": list})
	}
}
