package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/api/middleware"
	"github.com/vantagefund/wallet-engine/api/responses"
	"github.com/vantagefund/wallet-engine/api/validators"
	"github.com/vantagefund/wallet-engine/internal/positions"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
	"github.com/vantagefund/wallet-engine/pkg/logger"
	"github.com/vantagefund/wallet-engine/pkg/pagination"
)

type openPositionPayload struct {
	TierID       string          `json:"tier_id" validate:"required,uuid"`
	PrincipalUsd decimal.Decimal `json:"principal_usd" validate:"required"`
}

type upgradePositionPayload struct {
	AmountUsd decimal.Decimal `json:"amount_usd" validate:"required"`
}

type mergePositionsPayload struct {
	PositionIDs []string `json:"position_ids" validate:"required,min=2,dive,uuid"`
}

// TierList returns the configured position tiers.
func TierList(svc positions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tiers, err := svc.ListTiers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"tiers": tiers})
	}
}

// PositionList returns the caller's positions, newest first.
func PositionList(svc positions.Service, logg *logger.Logger) http.HandlerFunc {
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
		responses.WriteSuccess(w, map[string]any{"positions": list})
	}
}

// PositionOpen funds a new position from the caller's USD balance.
func PositionOpen(svc positions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _, ok := middleware.ActorFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var payload openPositionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		tierID, err := uuid.Parse(payload.TierID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier id"))
			return
		}

		result, err := svc.Open(ctx, positions.OpenInput{
			UserID:       userID,
			TierID:       tierID,
			PrincipalUsd: payload.PrincipalUsd,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PositionClaim pays out a position's accrued ROI to the caller's USD balance.
func PositionClaim(svc positions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _, ok := middleware.ActorFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		positionID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid position id"))
			return
		}

		result, err := svc.Claim(ctx, positions.ClaimInput{
			UserID:     userID,
			PositionID: positionID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PositionUpgrade adds principal to an active position from the caller's USD
// balance.
func PositionUpgrade(svc positions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _, ok := middleware.ActorFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		positionID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid position id"))
			return
		}

		var payload upgradePositionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Upgrade(ctx, positions.UpgradeInput{
			UserID:     userID,
			PositionID: positionID,
			AmountUsd:  payload.AmountUsd,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PositionMerge combines two or more of the caller's active positions into a
// single larger one.
func PositionMerge(svc positions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _, ok := middleware.ActorFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var payload mergePositionsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ids := make([]uuid.UUID, 0, len(payload.PositionIDs))
		for _, raw := range payload.PositionIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid position id"))
				return
			}
			ids = append(ids, id)
		}

		result, err := svc.Merge(ctx, positions.MergeInput{
			UserID:      userID,
			PositionIDs: ids,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
