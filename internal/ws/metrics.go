package ws

import "expvar"

var (
	metricUpgradesTotal    = expvar.NewInt("ws_upgrades_total")
	metricRejectedTotal    = expvar.NewInt("ws_rejected_total")
	metricFramesIn         = expvar.NewInt("ws_frames_in_total")
	metricFramesOut        = expvar.NewInt("ws_frames_out_total")
	metricMalformedFrames  = expvar.NewInt("ws_malformed_frames_total")
	metricSendQueueFull    = expvar.NewInt("ws_send_queue_full_total")
	metricClientsConnected = expvar.NewInt("ws_clients_connected")
)
