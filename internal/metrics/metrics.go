package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tracker"

// Collector holds the core's Prometheus counters. It satisfies the recorder
// interfaces of the repository, auth and policy packages.
type Collector struct {
	authAttempts  *prometheus.CounterVec
	authzDecision *prometheus.CounterVec
	transactions  *prometheus.CounterVec
}

// New creates a Collector and registers its counters with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts by outcome.",
		}, []string{"result"}),
		authzDecision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authz_decisions_total",
			Help:      "Authorization decisions by action and outcome.",
		}, []string{"action", "result"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Units of work by outcome.",
		}, []string{"result"}),
	}

	for _, col := range []prometheus.Collector{c.authAttempts, c.authzDecision, c.transactions} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordAuthAttempt counts one authentication outcome.
func (c *Collector) RecordAuthAttempt(result string) {
	c.authAttempts.WithLabelValues(result).Inc()
}

// RecordDecision counts one authorization decision.
func (c *Collector) RecordDecision(action string, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	c.authzDecision.WithLabelValues(action, result).Inc()
}

// RecordTransaction counts a committed or rolled back unit of work.
func (c *Collector) RecordTransaction(committed bool) {
	result := "rolled_back"
	if committed {
		result = "committed"
	}
	c.transactions.WithLabelValues(result).Inc()
}
