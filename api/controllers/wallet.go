package controllers

import (
	"net/http"
	"strings"

	"github.com/vantagefund/wallet-engine/api/middleware"
	"github.com/vantagefund/wallet-engine/api/responses"
	"github.com/vantagefund/wallet-engine/api/validators"
	"github.com/vantagefund/wallet-engine/internal/ledger"
	"github.com/vantagefund/wallet-engine/pkg/enums"
	pkgerrors "github.com/vantagefund/wallet-engine/pkg/errors"
	"github.com/vantagefund/wallet-engine/pkg/logger"
	"github.com/vantagefund/wallet-engine/pkg/pagination"
)

type balanceView struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// WalletBalances materializes the caller's balance for every currency, or a
// single one when ?currency= is given.
func WalletBalances(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		currencies := enums.Currencies()
		if raw := strings.TrimSpace(r.URL.Query().Get("currency")); raw != "" {
			currency, err := enums.ParseCurrency(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
				return
			}
			currencies = []enums.Currency{currency}
		}

		balances := make([]balanceView, 0, len(currencies))
		for _, currency := range currencies {
			amount, err := svc.Balance(r.Context(), userID, currency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			balances = append(balances, balanceView{Currency: string(currency), Amount: amount.String()})
		}
		responses.WriteSuccess(w, map[string]any{"balances": balances})
	}
}

// WalletLedger returns one cursor page of the caller's ledger history.
func WalletLedger(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.History(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
