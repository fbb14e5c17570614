package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegisterPipelineMetrics 注册报文处理链路指标。
// source 取值 api/upload/repair, result 取值 accepted/rejected。
func (m *Metrics) RegisterPipelineMetrics() {
	if m == nil || m.MessagesIngestedTotal != nil {
		return
	}

	m.MessagesIngestedTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "fix_messages_ingested_total",
		Help: "Total number of FIX messages accepted into the store",
	}, []string{"source", "result"})

	m.ParseIssuesTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "fix_parse_issues_total",
		Help: "Total number of strict validation issues by type",
	}, []string{"type"})

	m.RepairSuggestionsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "fix_repair_suggestions_total",
		Help: "Total number of repair suggestions generated by type",
	}, []string{"type"})

	m.AlertsFiredTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "fix_alerts_fired_total",
		Help: "Total number of alert rule matches",
	}, []string{"rule", "severity"})

	m.BroadcastSubscribers = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fix_broadcast_subscribers",
		Help: "Number of live stream subscribers",
	}, []string{"transport"})

	m.BroadcastDroppedTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "fix_broadcast_dropped_total",
		Help: "Total number of events dropped because a subscriber buffer was full",
	}, []string{"transport"})

	m.EventsPublishedTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "fix_events_published_total",
		Help: "Total number of events published to the message bus",
	}, []string{"topic", "status"})

	m.RetentionPrunedTotal = m.NewCounter(prometheus.CounterOpts{
		Name: "fix_retention_pruned_total",
		Help: "Total number of messages removed by the retention job",
	})
}
