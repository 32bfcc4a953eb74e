package arena

import "expvar"

var (
	metricConnectionsActive = expvar.NewInt("arena_connections_active")
	metricSessionsCreated   = expvar.NewInt("arena_sessions_created_total")
	metricSessionsStarted   = expvar.NewInt("arena_sessions_started_total")
	metricSessionsFinished  = expvar.NewInt("arena_sessions_finished_total")
	metricSessionsRemoved   = expvar.NewInt("arena_sessions_removed_total")
	metricSessionsExpired   = expvar.NewInt("arena_sessions_expired_total")
	metricForfeitsTotal     = expvar.NewInt("arena_forfeits_total")
	metricMovesTotal        = expvar.NewInt("arena_moves_total")
	metricRejectedTotal     = expvar.NewInt("arena_rejected_total")
	metricPanicsTotal       = expvar.NewInt("arena_handler_panics_total")
	metricEventsDropped     = expvar.NewInt("arena_events_dropped_total")
	metricLiveSessions      = expvar.NewInt("arena_live_sessions")
)
