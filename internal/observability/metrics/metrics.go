package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the chat intake pipeline.
type IntakeMetrics struct {
	messagesTotal    *prometheus.CounterVec
	submissionsTotal *prometheus.CounterVec
	llmLatency       *prometheus.HistogramVec
	retrievalTotal   *prometheus.CounterVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amplifyx",
			Subsystem: "intake",
			Name:      "messages_total",
			Help:      "Total chat messages processed",
		}, []string{"phase", "outcome"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amplifyx",
			Subsystem: "intake",
			Name:      "submissions_total",
			Help:      "Total lead submissions by outcome",
		}, []string{"outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "amplifyx",
			Subsystem: "intake",
			Name:      "llm_latency_seconds",
			Help:      "Latency of LLM completions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		retrievalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amplifyx",
			Subsystem: "intake",
			Name:      "retrieval_total",
			Help:      "Total knowledge retrieval attempts",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.submissionsTotal, m.llmLatency, m.retrievalTotal)
	return m
}

func (m *IntakeMetrics) ObserveMessage(phase, outcome string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(phase, outcome).Inc()
}

func (m *IntakeMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *IntakeMetrics) ObserveLLMLatency(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *IntakeMetrics) ObserveRetrieval(outcome string) {
	if m == nil {
		return
	}
	m.retrievalTotal.WithLabelValues(outcome).Inc()
}
