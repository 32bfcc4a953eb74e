package settlement

import "expvar"

var (
	metricStakeTotal       = expvar.NewInt("settlement_stake_total")
	metricStakeFailedTotal = expvar.NewInt("settlement_stake_failed_total")
	metricQueuedTotal      = expvar.NewInt("settlement_queued_total")
	metricDuplicateTotal   = expvar.NewInt("settlement_duplicate_total")
	metricAppliedTotal     = expvar.NewInt("settlement_applied_total")
	metricRetryTotal       = expvar.NewInt("settlement_retry_total")
	metricDeadLetterTotal  = expvar.NewInt("settlement_dead_letter_total")
	metricReplayedTotal    = expvar.NewInt("settlement_replayed_total")
	metricQueueLen         = expvar.NewInt("settlement_queue_len")
	metricPendingLen       = expvar.NewInt("settlement_pending_len")
)
