package metrics

import "github.com/prometheus/client_golang/prometheus"

// Quota and monitor Prometheus metrics.
var (
	MonitorTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "limitwatch",
			Name:      "monitor_ticks_total",
			Help:      "Warning monitor evaluations per project",
		},
		[]string{"result"}, // "ok" / "error"
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "limitwatch",
			Name:      "notifications_total",
			Help:      "Low-balance notifications delivered to users",
		},
		[]string{"result"}, // "sent" / "failed"
	)

	QuotaMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "limitwatch",
			Name:      "quota_mutations_total",
			Help:      "Applied limit mutations",
		},
		[]string{"mode"},
	)

	QuotaRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "limitwatch",
			Name:      "quota_remaining",
			Help:      "Remaining quota observed by the last monitor tick",
		},
		[]string{"project"},
	)

	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "limitwatch",
			Name:      "chat_updates_total",
			Help:      "Chat updates handled by kind",
		},
		[]string{"kind"}, // "message" / "callback" / "ignored"
	)
)

var quotaMetricsRegistered bool

// RegisterQuotaMetrics registers Prometheus quota metrics. Must be called once from main.
func RegisterQuotaMetrics() {
	if quotaMetricsRegistered {
		return
	}
	prometheus.MustRegister(MonitorTicksTotal)
	prometheus.MustRegister(NotificationsTotal)
	prometheus.MustRegister(QuotaMutationsTotal)
	prometheus.MustRegister(QuotaRemaining)
	prometheus.MustRegister(UpdatesTotal)
	quotaMetricsRegistered = true
}
