package fdcheck

import "github.com/prometheus/client_golang/prometheus"

const namespace = "fdcheck"

var trackedDesc = prometheus.NewDesc(
	prometheus.BuildFQName(namespace, "", "tracked_descriptors"),
	"Number of descriptor records held by the validator, including closed descriptors.",
	nil, nil,
)

type metrics struct {
	checksTotal     prometheus.Counter
	violationsTotal *prometheus.CounterVec
}

func newMetrics() *metrics {
	return &metrics{
		checksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Total number of descriptor transitions checked.",
		}),
		violationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Total number of descriptor transitions which failed their check.",
		}, []string{"check"}),
	}
}

func (m *metrics) check() { m.checksTotal.Inc() }

func (m *metrics) violation(msg string) { m.violationsTotal.WithLabelValues(msg).Inc() }

func (m *metrics) describe(ch chan<- *prometheus.Desc) {
	m.checksTotal.Describe(ch)
	m.violationsTotal.Describe(ch)
}

func (m *metrics) collect(ch chan<- prometheus.Metric) {
	m.checksTotal.Collect(ch)
	m.violationsTotal.Collect(ch)
}
