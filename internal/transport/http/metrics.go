package httptransport

import "expvar"

var (
	metricWalletReadsTotal = expvar.NewInt("http_wallet_reads_total")
	metricAdminTopupsTotal = expvar.NewInt("http_admin_topups_total")
)
