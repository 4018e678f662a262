package telemetry

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/biddeed/deedscout/internal/fault"
	"github.com/biddeed/deedscout/models"
)

// Outcome labels for recorded operations.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// OutcomeFor maps an operation error to its outcome label.
func OutcomeFor(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case fault.Is(err, fault.KindTimeout):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

// Telemetry records acquisition and chat metrics and emits one structured
// log record per acquisition, which is the only required observability hook
// of the executor.
type Telemetry struct {
	logger *log.Logger

	acquisitions       *prometheus.CounterVec
	acquisitionSeconds *prometheus.HistogramVec
	chatRequests       *prometheus.CounterVec
	chatTokens         prometheus.Counter
}

// New registers the collectors on reg. Pass a fresh registry in tests;
// prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deedscout_acquisitions_total",
			Help: "Acquisition attempts by source, strategy and outcome.",
		}, []string{"source", "strategy", "outcome"}),
		acquisitionSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deedscout_acquisition_duration_seconds",
			Help:    "Acquisition latency by source and strategy.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"source", "strategy"}),
		chatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deedscout_chat_requests_total",
			Help: "Chat relay requests by outcome.",
		}, []string{"outcome"}),
		chatTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deedscout_chat_tokens_total",
			Help: "Total tokens reported by the text-generation collaborator.",
		}),
	}
	if reg != nil {
		reg.MustRegister(t.acquisitions, t.acquisitionSeconds, t.chatRequests, t.chatTokens)
	}
	return t
}

// RecordAcquisition logs and counts one executor call.
func (t *Telemetry) RecordAcquisition(source, strategy, outcome string, elapsed time.Duration) {
	t.acquisitions.WithLabelValues(source, strategy, outcome).Inc()
	t.acquisitionSeconds.WithLabelValues(source, strategy).Observe(elapsed.Seconds())
	t.logger.Printf("acquisition source=%s strategy=%s outcome=%s elapsed=%s", source, strategy, outcome, elapsed)
}

// RecordChat counts one relay call.
func (t *Telemetry) RecordChat(outcome string, usage models.Usage) {
	t.chatRequests.WithLabelValues(outcome).Inc()
	if usage.TotalTokens > 0 {
		t.chatTokens.Add(float64(usage.TotalTokens))
	}
}
