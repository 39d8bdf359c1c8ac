package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consignment_cycles_started_total",
			Help: "Total number of job cycles started, by trigger source",
		},
		[]string{"source"},
	)

	CycleRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "consignment_cycle_running",
			Help: "Whether a job cycle is currently in flight (0 or 1)",
		},
	)

	ClientsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consignment_clients_processed_total",
			Help: "Total number of clients processed, by empresa",
		},
		[]string{"empresa"},
	)

	ConsultsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "consignment_consults_created_total",
			Help: "Consult creations accepted by the provider (2xx)",
		},
	)

	ConsultsActive400 = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "consignment_consults_active_400_total",
			Help: "Consult creations answered 400 (already in progress)",
		},
	)

	WindowsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "consignment_rate_windows_started_total",
			Help: "Hourly rate windows started across all tokens",
		},
	)

	APIErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "consignment_api_errors_total",
			Help: "Provider API errors (non-2xx or transport failure)",
		},
	)

	DBErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "consignment_db_errors_total",
			Help: "Store errors while reading or updating records",
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "consignment_cycle_events_queue_depth",
			Help: "Current depth of the cycle events queue",
		},
	)
)

// Init registers metrics with Prometheus
func Init() {
	prometheus.MustRegister(CyclesStarted)
	prometheus.MustRegister(CycleRunning)
	prometheus.MustRegister(ClientsProcessed)
	prometheus.MustRegister(ConsultsCreated)
	prometheus.MustRegister(ConsultsActive400)
	prometheus.MustRegister(WindowsStarted)
	prometheus.MustRegister(APIErrors)
	prometheus.MustRegister(DBErrors)
	prometheus.MustRegister(QueueDepth)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
