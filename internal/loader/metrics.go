package loader

import "github.com/prometheus/client_golang/prometheus"

var loadsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "scoutd",
		Subsystem: "loader",
		Name:      "loads_total",
		Help:      "Model load attempts by tier and outcome",
	},
	[]string{"tier", "outcome"},
)

func init() {
	prometheus.MustRegister(loadsTotal)
}
