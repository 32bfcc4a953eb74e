package mirror

import "expvar"

var (
	metricWrites      = expvar.NewInt("mirror_writes_total")
	metricWriteErrors = expvar.NewInt("mirror_write_errors_total")
	metricDropped     = expvar.NewInt("mirror_dropped_total")
)
