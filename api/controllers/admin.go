package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/api/middleware"
	"github.com/vantagefund/wallet-engine/api/responses"
	"github.com/vantagefund/wallet-engine/api/validators"
	"github.com/vantagefund/wallet-engine/internal/deposits"
	"github.com/vantagefund/wallet-engine/internal/withdrawals"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
	"github.com/vantagefund/wallet-engine/pkg/logger"
)

type depositDecisionPayload struct {
	Decision     string           `json:"decision" validate:"required,oneof=confirm reject"`
	ActualAmount *decimal.Decimal `json:"actual_amount,omitempty"`
	Reason       *string          `json:"reason,omitempty"`
}

type withdrawalDecisionPayload struct {
	Decision string  `json:"decision" validate:"required,oneof=approve reject"`
	Reason   *string `json:"reason,omitempty"`
}

// AdminDepositDecide confirms or rejects a pending deposit. Replays of the
// same decision are no-ops.
func AdminDepositDecide(svc deposits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorID, actorRole, ok := middleware.ActorFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		depositID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid deposit id"))
			return
		}

		var payload depositDecisionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Decide(ctx, deposits.DecideInput{
			DepositID:    depositID,
			Decision:     deposits.Decision(payload.Decision),
			ActualAmount: payload.ActualAmount,
			Reason:       payload.Reason,
			ActorUserID:  actorID,
			ActorRole:    actorRole,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminWithdrawalDecide approves or rejects a pending withdrawal. Rejection
// refunds the reservation; replays of the same decision are no-ops.
func AdminWithdrawalDecide(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorID, actorRole, ok := middleware.ActorFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		withdrawalID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid withdrawal id"))
			return
		}

		var payload withdrawalDecisionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Decide(ctx, withdrawals.DecideInput{
			WithdrawalID: withdrawalID,
			Decision:     withdrawals.Decision(payload.Decision),
			Reason:       payload.Reason,
			ActorUserID:  actorID,
			ActorRole:    actorRole,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
