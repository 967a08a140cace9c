package server

import (
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/tKV/rpc/wire"
	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
)

// opcodes tracked by their own series, everything else is counted as "unknown"
var trackedOps = [...]wire.OpCode{wire.OpInvalid, wire.OpGet, wire.OpInvoke}

const numStatus = int(wire.StatusExtensionError) + 1

// Metrics collects per request statistics of the dispatcher.
//
// Prometheus series (VictoriaMetrics):
//
//	tkv_requests_total{opcode,status}         requests by opcode and outcome
//	tkv_request_duration_seconds{opcode}      dispatch latency
//	tkv_extension_calls_total{result}         extension calls by result
//
// Timers (go-metrics, exposed as JSON): "dispatch" and "extension.call".
type Metrics struct {
	set      *metrics.Set
	registry gometrics.Registry

	requests  [len(trackedOps)][numStatus]*metrics.Counter
	durations [len(trackedOps)]*metrics.Histogram
	extOk     *metrics.Counter
	extFailed *metrics.Counter

	dispatchTimer  gometrics.Timer
	extensionTimer gometrics.Timer
}

// NewMetrics creates all series up front, recording a request never allocates
func NewMetrics() *Metrics {
	m := &Metrics{
		set:      metrics.NewSet(),
		registry: gometrics.NewRegistry(),
	}

	for i, op := range trackedOps {
		for s := 0; s < numStatus; s++ {
			m.requests[i][s] = m.set.NewCounter(fmt.Sprintf(`tkv_requests_total{opcode=%q,status=%q}`, op.String(), statusLabel(wire.Status(s))))
		}
		m.durations[i] = m.set.NewHistogram(fmt.Sprintf(`tkv_request_duration_seconds{opcode=%q}`, op.String()))
	}
	m.extOk = m.set.NewCounter(`tkv_extension_calls_total{result="ok"}`)
	m.extFailed = m.set.NewCounter(`tkv_extension_calls_total{result="error"}`)

	m.dispatchTimer = gometrics.NewRegisteredTimer("dispatch", m.registry)
	m.extensionTimer = gometrics.NewRegisteredTimer("extension.call", m.registry)
	return m
}

// observe records the outcome of a dispatch
func (m *Metrics) observe(op wire.OpCode, status wire.Status, start time.Time) {
	i := 0 // unknown
	if op.Valid() {
		i = int(op)
	}
	if int(status) < numStatus {
		m.requests[i][status].Inc()
	}
	m.durations[i].UpdateDuration(start)
	m.dispatchTimer.UpdateSince(start)
}

// observeExtension records the outcome of an extension call
func (m *Metrics) observeExtension(err error, start time.Time) {
	m.extensionTimer.UpdateSince(start)
	if err != nil {
		m.extFailed.Inc()
		return
	}
	m.extOk.Inc()
}

// Requests returns the number of requests recorded for an opcode and status
func (m *Metrics) Requests(op wire.OpCode, status wire.Status) uint64 {
	i := 0
	if op.Valid() {
		i = int(op)
	}
	if int(status) >= numStatus {
		return 0
	}
	return m.requests[i][status].Get()
}

// WritePrometheus writes all series in Prometheus text format
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

// WriteJSON writes a snapshot of the timers as JSON
func (m *Metrics) WriteJSON(w io.Writer) {
	gometrics.WriteJSONOnce(m.registry, w)
}

// statusLabel turns a status into a label value (e.g. "tenant_does_not_exist")
func statusLabel(s wire.Status) string {
	b := []byte(s.String())
	for i, c := range b {
		if c == ' ' {
			b[i] = '_'
		}
	}
	return string(b)
}
