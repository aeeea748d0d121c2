// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_dispatch_cycles_total",
			Help: "Total number of dispatch cycles by final status",
		},
		[]string{"status"},
	)

	SendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_sends_total",
			Help: "Total (recipient, channel) send attempts by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	DispatchCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notify_dispatch_cycle_duration_seconds",
			Help: "Duration of a dispatch cycle in seconds",
		},
		[]string{"tenant"},
	)

	InboxEntriesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_inbox_entries_created_total",
			Help: "Total inbox entries materialized",
		},
	)

	TemplateVersionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_template_versions_created_total",
			Help: "Total template versions appended",
		},
	)
)
