package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	apppublic "wager-arena/internal/app/public"
	appsession "wager-arena/internal/app/session"
	appwallet "wager-arena/internal/app/wallet"
	"wager-arena/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Deps are the services the router mounts. DB and DeadLetters may be nil.
type Deps struct {
	Config      config.ServerConfig
	Wallet      *appwallet.Service
	Public      *apppublic.Service
	Sessions    *appsession.Service
	Settlements Settlements
	DeadLetters DeadLetterStore
	DB          Pinger
	WS          http.HandlerFunc
	MCP         http.Handler
}

func NewRouter(d Deps) *chi.Mux {
	walletHandlers := NewWalletHandlers(d.Wallet)
	publicHandlers := NewPublicHandlers(d.Public, d.Sessions)
	adminHandlers := NewAdminHandlers(d.DB, d.Wallet, d.Settlements, d.DeadLetters)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	if d.WS != nil {
		r.With(APILogMiddleware()).Get("/ws", d.WS)
	}
	if d.MCP != nil {
		r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
		})
		r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", d.MCP)
		r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", d.MCP)
		r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", d.MCP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/public/games", publicHandlers.Games())
		r.Get("/public/stats", publicHandlers.Stats())
		r.Get("/public/results", publicHandlers.Results())
		r.Get("/public/sessions/{session_id}", publicHandlers.Session())
		r.Get("/public/players/{user_id}/sessions", publicHandlers.PlayerSessions())

		r.Group(func(r chi.Router) {
			r.Use(IdentityMiddleware())
			r.Get("/wallet", walletHandlers.Wallet())
			r.Get("/wallet/transactions", walletHandlers.Transactions())
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.Config.AdminAPIKey))
			r.Use(BodyCaptureMiddleware(4096))
			r.Post("/topup", adminHandlers.Topup())
			r.Get("/settlements/failed", adminHandlers.FailedSettlements())
			r.Post("/settlements/replay", adminHandlers.ReplaySettlements())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})

	if d.Config.AdminAPIKey == "" {
		log.Warn().Msg("ADMIN_API_KEY is empty; admin routes are unauthenticated")
	}
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	var routes []routeDef
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	fmt.Fprintf(&b, "Registered routes (%d):\n", len(routes))
	for _, rt := range routes {
		fmt.Fprintf(&b, "  %-6s %s\n", rt.Method, rt.Path)
	}
	fmt.Print(b.String())
}
