package main

import (
	"context"
	"fmt"
	"time"

	apppublic "wager-arena/internal/app/public"
	appsession "wager-arena/internal/app/session"
	appwallet "wager-arena/internal/app/wallet"
	"wager-arena/internal/arena"
	"wager-arena/internal/config"
	"wager-arena/internal/ledger"
	"wager-arena/internal/mcpserver"
	"wager-arena/internal/mirror"
	"wager-arena/internal/settlement"
	"wager-arena/internal/store"
	httptransport "wager-arena/internal/transport/http"
	"wager-arena/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const drainTimeout = 5 * time.Second

// app owns the long-running pieces of the game server. Workers run on their
// own context so shutdown can drain pending payouts before stopping them.
type app struct {
	router *chi.Mux
	arena  *arena.Coordinator
	settle *settlement.Coordinator
	mirror *mirror.Mirror
	db     *store.Store

	cancel context.CancelFunc
}

func newApp(ctx context.Context, cfg config.ServerConfig) (*app, error) {
	a := &app{}
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	var backend ledger.Backend
	if cfg.PostgresDSN != "" {
		st, err := store.New(cfg.PostgresDSN)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.db = st
		if err := st.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		backend = st
	} else {
		log.Warn().Msg("POSTGRES_DSN is empty; using in-memory ledger")
		backend = store.NewMemory()
	}
	led := ledger.New(backend, cfg.InitialBalance)

	a.settle = settlement.New(led, settlement.Config{
		Workers:   cfg.SettlementWorkers,
		RetryMax:  cfg.SettlementRetryMax,
		RetryBase: cfg.SettlementRetryBase,
		Timeout:   cfg.LedgerTimeout,
	})

	if cfg.RedisURL != "" {
		mir, err := mirror.New(mirror.Config{
			URL:        cfg.RedisURL,
			SessionTTL: cfg.MirrorSessionTTL,
			ResultsMax: cfg.MirrorResultsMax,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open mirror: %w", err)
		}
		a.mirror = mir
		mir.Start(runCtx)
		a.settle.SetDeadLetterSink(mir)
		a.settle.SetJournal(mir)
	} else {
		log.Warn().Msg("REDIS_URL is empty; session mirror disabled")
	}
	a.settle.Start(runCtx)
	if a.mirror != nil {
		if err := a.restoreOutbox(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("restore settlement outbox: %w", err)
		}
	}

	a.arena = arena.NewCoordinator(led, a.settle, nil, arena.Config{
		WaitingTTL:  cfg.WaitingTTL,
		FinishedTTL: cfg.FinishedTTL,
	})
	if a.mirror != nil {
		a.arena.SetLifecycleObserver(a.mirror)
	}
	a.arena.StartJanitor(runCtx, cfg.ReaperInterval)

	// Interface fields stay nil rather than holding a typed nil pointer.
	var results apppublic.Results
	var deadLetters httptransport.DeadLetterStore
	if a.mirror != nil {
		results = a.mirror
		deadLetters = a.mirror
	}
	var db httptransport.Pinger
	if a.db != nil {
		db = a.db
	}

	walletSvc := appwallet.NewService(led)
	publicSvc := apppublic.NewService(a.arena, results)
	sessionSvc := appsession.NewService(a.arena)
	wsSrv := ws.NewServer(a.arena, cfg.WSAllowedOrigins)
	mcpSrv := mcpserver.New(publicSvc, sessionSvc, walletSvc)

	a.router = httptransport.NewRouter(httptransport.Deps{
		Config:      cfg,
		Wallet:      walletSvc,
		Public:      publicSvc,
		Sessions:    sessionSvc,
		Settlements: a.settle,
		DeadLetters: deadLetters,
		DB:          db,
		WS:          wsSrv.HandleWS,
		MCP:         mcpSrv.Handler(),
	})
	return a, nil
}

// restoreOutbox requeues payouts a previous process recorded but never
// applied, and reloads its dead letters so they can be replayed.
func (a *app) restoreOutbox(ctx context.Context) error {
	pending, err := a.mirror.PendingJobs(ctx)
	if err != nil {
		return err
	}
	failed, err := a.mirror.DeadLetters(ctx)
	if err != nil {
		return err
	}
	a.settle.Restore(pending, failed)
	return nil
}

// close drains queued payouts and mirror writes, then releases connections.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if a.settle != nil {
		if err := a.settle.WaitIdle(ctx); err != nil {
			log.Warn().Err(err).Int("pending", len(a.settle.Pending())).Msg("settlement drain incomplete")
		}
	}
	if a.mirror != nil {
		if err := a.mirror.Flush(ctx); err != nil {
			log.Warn().Err(err).Msg("mirror flush incomplete")
		}
	}
	a.cancel()
	if a.mirror != nil {
		_ = a.mirror.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
