package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	appwallet "wager-arena/internal/app/wallet"
	"wager-arena/internal/mirror"
	"wager-arena/internal/settlement"

	"github.com/rs/zerolog/log"
)

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Settlements is the admin view of the settlement outbox.
type Settlements interface {
	Pending() []settlement.Job
	Failed() []settlement.Job
	Replay(key string) error
	ReplayAll() int
}

// DeadLetterStore is the durable copy of failed settlements.
type DeadLetterStore interface {
	DeadLetters(ctx context.Context) ([]settlement.Job, error)
	ResolveDeadLetter(ctx context.Context, key string) error
}

type AdminHandlers struct {
	db          Pinger
	wallet      *appwallet.Service
	settlements Settlements
	deadLetters DeadLetterStore
}

// NewAdminHandlers accepts nil db and deadLetters when the service runs
// without Postgres or Redis.
func NewAdminHandlers(db Pinger, wallet *appwallet.Service, settlements Settlements, deadLetters DeadLetterStore) *AdminHandlers {
	return &AdminHandlers{db: db, wallet: wallet, settlements: settlements, deadLetters: deadLetters}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.db == nil {
			writeJSON(w, map[string]any{"ok": true, "db": "memory"})
			return
		}
		if err := h.db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		writeJSON(w, map[string]any{"ok": true, "db": "up"})
	}
}

func (h *AdminHandlers) Topup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID      string `json:"user_id"`
			Amount      int64  `json:"amount"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		resp, err := h.wallet.TopUp(r.Context(), body.UserID, body.Amount, body.Description)
		if err != nil {
			status, code := mapAdminErr(err)
			WriteHTTPError(w, status, code)
			return
		}
		metricAdminTopupsTotal.Add(1)
		log.Info().Str("user_id", body.UserID).Int64("amount", body.Amount).Int64("balance", resp.Balance).Msg("admin topup")
		writeJSON(w, resp)
	}
}

func (h *AdminHandlers) FailedSettlements() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"failed":  h.settlements.Failed(),
			"pending": len(h.settlements.Pending()),
		}
		if h.deadLetters != nil {
			stored, err := h.deadLetters.DeadLetters(r.Context())
			if err != nil {
				log.Warn().Err(err).Msg("read mirrored dead letters failed")
			} else {
				resp["mirrored"] = stored
			}
		}
		writeJSON(w, resp)
	}
}

func (h *AdminHandlers) ReplaySettlements() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Key string `json:"key"`
			All bool   `json:"all"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		body.Key = strings.TrimSpace(body.Key)

		var keys []string
		switch {
		case body.All:
			for _, j := range h.settlements.Failed() {
				keys = append(keys, j.Key)
			}
			h.settlements.ReplayAll()
		case body.Key != "":
			if err := h.settlements.Replay(body.Key); err != nil {
				status, code := mapAdminErr(err)
				WriteHTTPError(w, status, code)
				return
			}
			keys = []string{body.Key}
		default:
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}

		if h.deadLetters != nil {
			for _, k := range keys {
				if err := h.deadLetters.ResolveDeadLetter(r.Context(), k); err != nil && !errors.Is(err, mirror.ErrNotFound) {
					log.Warn().Err(err).Str("key", k).Msg("resolve mirrored dead letter failed")
				}
			}
		}
		if keys == nil {
			keys = []string{}
		}
		writeJSON(w, map[string]any{"ok": true, "replayed": keys})
	}
}

func mapAdminErr(err error) (int, string) {
	switch {
	case errors.Is(err, settlement.ErrNotFailed):
		return http.StatusNotFound, "settlement_not_failed"
	default:
		return mapWalletErr(err)
	}
}
