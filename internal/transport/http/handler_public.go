package httptransport

import (
	"errors"
	"net/http"
	"strconv"

	apppublic "wager-arena/internal/app/public"
	appsession "wager-arena/internal/app/session"

	"github.com/go-chi/chi/v5"
)

type PublicHandlers struct {
	publicSvc  *apppublic.Service
	sessionSvc *appsession.Service
}

func NewPublicHandlers(publicSvc *apppublic.Service, sessionSvc *appsession.Service) *PublicHandlers {
	return &PublicHandlers{publicSvc: publicSvc, sessionSvc: sessionSvc}
}

func (h *PublicHandlers) Games() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, h.publicSvc.Games())
	}
}

func (h *PublicHandlers) Stats() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, h.publicSvc.Stats())
	}
}

func (h *PublicHandlers) Results() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var limit int64
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 1 {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_limit")
				return
			}
			limit = n
		}
		resp, err := h.publicSvc.Results(r.Context(), limit)
		if err != nil {
			if errors.Is(err, apppublic.ErrResultsUnavailable) {
				WriteHTTPError(w, http.StatusServiceUnavailable, "results_unavailable")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, resp)
	}
}

func (h *PublicHandlers) Session() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.sessionSvc.Get(chi.URLParam(r, "session_id"))
		if err != nil {
			writeSessionErr(w, err)
			return
		}
		writeJSON(w, resp)
	}
}

func (h *PublicHandlers) PlayerSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.sessionSvc.FindByUser(chi.URLParam(r, "user_id"))
		if err != nil {
			writeSessionErr(w, err)
			return
		}
		writeJSON(w, map[string]any{"items": items})
	}
}

func writeSessionErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appsession.ErrInvalidRequest):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, appsession.ErrSessionNotFound):
		WriteHTTPError(w, http.StatusNotFound, "session_not_found")
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
