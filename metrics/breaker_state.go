package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegisterBreakerMetrics 注册熔断器状态指标。
// 状态值对应 gobreaker.State (0: Closed, 1: Half-Open, 2: Open)。
func (m *Metrics) RegisterBreakerMetrics() {
	if m == nil || m.CircuitBreakerState != nil {
		return
	}

	m.CircuitBreakerState = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state (0: Closed, 1: Half-Open, 2: Open)",
	}, []string{"name"})
}
