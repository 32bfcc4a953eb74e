package httptransport

import (
	"errors"
	"net/http"

	appwallet "wager-arena/internal/app/wallet"
	"wager-arena/internal/ledger"
)

type WalletHandlers struct {
	svc *appwallet.Service
}

func NewWalletHandlers(svc *appwallet.Service) *WalletHandlers {
	return &WalletHandlers{svc: svc}
}

func (h *WalletHandlers) Wallet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricWalletReadsTotal.Add(1)
		user, _ := UserFromContext(r.Context())
		resp, err := h.svc.Wallet(r.Context(), user.ID)
		if err != nil {
			writeWalletErr(w, err)
			return
		}
		writeJSON(w, resp)
	}
}

func (h *WalletHandlers) Transactions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricWalletReadsTotal.Add(1)
		user, _ := UserFromContext(r.Context())
		page, limit := ParsePage(r, ledger.DefaultPageLimit, 100)
		resp, err := h.svc.Transactions(r.Context(), user.ID, page, limit)
		if err != nil {
			writeWalletErr(w, err)
			return
		}
		writeJSON(w, resp)
	}
}

func writeWalletErr(w http.ResponseWriter, err error) {
	status, code := mapWalletErr(err)
	WriteHTTPError(w, status, code)
}

func mapWalletErr(err error) (int, string) {
	switch {
	case errors.Is(err, appwallet.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, appwallet.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusConflict, "insufficient_funds"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
