package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/stake-plus/sevenkey-bot/src/verification"
)

// Metrics provides observability for the verification workflow.
type Metrics struct {
	// Workflow events by kind and game
	Events *prometheus.CounterVec

	// Live records in the pending registry
	Pending prometheus.GaugeFunc
}

// New registers the verification metrics on reg. pending is sampled on scrape.
func New(reg prometheus.Registerer, pending func() int) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sevenkey_verification_events_total",
			Help: "Verification workflow events by kind and game",
		}, []string{"kind", "game"}),

		Pending: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sevenkey_verification_pending",
			Help: "Verification requests waiting for a country or a decision",
		}, func() float64 {
			if pending == nil {
				return 0
			}
			return float64(pending())
		}),
	}
}

// Publish implements verification.EventSink.
func (m *Metrics) Publish(_ context.Context, ev verification.Event) error {
	if m != nil {
		game := string(ev.Game)
		if game == "" {
			game = "unknown"
		}
		m.Events.WithLabelValues(string(ev.Kind), game).Inc()
	}
	return nil
}
