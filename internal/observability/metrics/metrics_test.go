package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestIntakeMetricsObserve(t *testing.T) {
	m := NewIntakeMetrics(prometheus.NewRegistry())
	m.ObserveMessage("collecting", "ok")
	m.ObserveSubmission("primary")
	m.ObserveLLMLatency("openai", 0.5)
	m.ObserveRetrieval("hit")
}

func TestIntakeMetricsDefaultRegistry(t *testing.T) {
	m := NewIntakeMetrics(nil)
	m.ObserveMessage("confirming", "ok")
}

func TestIntakeMetricsNilSafe(t *testing.T) {
	var m *IntakeMetrics
	m.ObserveMessage("collecting", "ok")
	m.ObserveSubmission("failed")
	m.ObserveLLMLatency("gemini", 0.1)
	m.ObserveRetrieval("skip")
}
