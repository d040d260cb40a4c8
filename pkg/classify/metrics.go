package classify

import "github.com/prometheus/client_golang/prometheus"

// Metrics named per SPEC_FULL §10: "counts blocks analyzed / defects
// found by kind, exposed via an optional --metrics-addr HTTP endpoint",
// the ambient observability role pkg/metrics plays for the teacher's
// controller.
var (
	blocksAnalyzedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blockdefect_blocks_analyzed_total",
		Help: "Number of conditional blocks run through the defect classifier.",
	})
	defectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blockdefect_defects_total",
		Help: "Number of defects classified, by kind, polarity and scope.",
	}, []string{"kind", "polarity", "scope"})
)

// RegisterMetrics registers the classifier's counters with reg. A
// registration that fails with prometheus.AlreadyRegisteredError (e.g. a
// second call against the same registry) is ignored and yields nil; any
// other registration error is returned.
func RegisterMetrics(reg prometheus.Registerer) error {
	if err := reg.Register(blocksAnalyzedTotal); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return err
		}
	}
	if err := reg.Register(defectsTotal); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return err
		}
	}
	return nil
}

func recordBlockAnalyzed() {
	blocksAnalyzedTotal.Inc()
}

func recordDefect(d *Defect) {
	if d == nil {
		return
	}
	scope := "locally"
	if d.Global {
		scope = "globally"
	}
	defectsTotal.WithLabelValues(d.Kind.String(), d.Polarity.String(), scope).Inc()
}
