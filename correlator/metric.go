package correlator

import "sync/atomic"

// Metrics contains atomic counters of a Correlator.
type Metrics struct {
	// CommandSendCount indicates the number of commands handed to the transport.
	CommandSendCount atomic.Uint64
	// ResponseMatchCount indicates the number of responses that settled a command.
	ResponseMatchCount atomic.Uint64
	// ResponseDropCount indicates the number of responses dropped with nothing outstanding.
	ResponseDropCount atomic.Uint64
	// TimeoutCount indicates the number of commands failed by the response timeout.
	TimeoutCount atomic.Uint64
	// DisconnectErrCount indicates the number of commands failed by a lost connection.
	DisconnectErrCount atomic.Uint64
	// BusyCount indicates the number of commands rejected while another was outstanding.
	BusyCount atomic.Uint64
	// InflightCount indicates the number of outstanding commands, 0 or 1.
	InflightCount atomic.Int64
}
