package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	SearchHit      = "hit"
	SearchFallback = "fallback"
	SearchSkipped  = "skipped"
	SearchError    = "error"

	LLMSuccess = "success"
	LLMTimeout = "timeout"
	LLMError   = "error"
)

// ChatMetrics counts chatbot pipeline outcomes. A nil *ChatMetrics is valid
// and records nothing.
type ChatMetrics struct {
	searches    *prometheus.CounterVec
	llmRequests *prometheus.CounterVec
	llmDuration prometheus.Histogram
}

// NewChatMetrics builds the collectors and registers them on reg. A nil
// reg leaves them unregistered, which tests rely on.
func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatbot_search_total",
				Help: "Catalog retrievals by outcome.",
			},
			[]string{"outcome"},
		),
		llmRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatbot_llm_requests_total",
				Help: "Completion requests by outcome.",
			},
			[]string{"outcome"},
		),
		llmDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatbot_llm_duration_seconds",
			Help:    "Completion request latency.",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.searches, m.llmRequests, m.llmDuration)
	}
	return m
}

// ObserveSearch records a retrieval outcome.
func (m *ChatMetrics) ObserveSearch(outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
}

// ObserveLLM records a completion outcome and its latency.
func (m *ChatMetrics) ObserveLLM(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(outcome).Inc()
	m.llmDuration.Observe(d.Seconds())
}
