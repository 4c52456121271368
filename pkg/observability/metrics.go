package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/convoflow/convoflow/pkg/domain"
)

// Metrics holds the Prometheus collectors for flow activity.
type Metrics struct {
	flowsParsed    prometheus.Counter
	sectionsParsed prometheus.Counter
	nodeEnters     *prometheus.CounterVec
	handlerCalls   *prometheus.CounterVec
	reprompts      *prometheus.CounterVec
	objections     *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on the given registerer.
// Pass prometheus.DefaultRegisterer for the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		flowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "convoflow",
			Name:      "flows_parsed_total",
			Help:      "Number of prompts parsed into flows.",
		}),
		sectionsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "convoflow",
			Name:      "sections_parsed_total",
			Help:      "Number of sections extracted across all parsed flows.",
		}),
		nodeEnters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convoflow",
			Name:      "node_enters_total",
			Help:      "Number of node entries, by section type.",
		}, []string{"section_type"}),
		handlerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convoflow",
			Name:      "handler_calls_total",
			Help:      "Number of handler invocations, by function.",
		}, []string{"function"}),
		reprompts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convoflow",
			Name:      "reprompts_total",
			Help:      "Number of re-prompts caused by missing required fields, by node.",
		}, []string{"node"}),
		objections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convoflow",
			Name:      "objections_total",
			Help:      "Number of objections handled, by objection node.",
		}, []string{"node"}),
	}

	reg.MustRegister(
		m.flowsParsed,
		m.sectionsParsed,
		m.nodeEnters,
		m.handlerCalls,
		m.reprompts,
		m.objections,
	)
	return m
}

// Hooks returns lifecycle hooks that feed the collectors. Merge them into
// the engine's hooks at construction.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFlowParsed: func(ctx context.Context, e *domain.FlowEvent) {
			m.flowsParsed.Inc()
			m.sectionsParsed.Add(float64(e.SectionCount))
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeEnters.WithLabelValues(string(e.SectionType)).Inc()
		},
		OnHandlerCalled: func(ctx context.Context, e *domain.NodeEvent) {
			m.handlerCalls.WithLabelValues(e.Function).Inc()
		},
		OnReprompt: func(ctx context.Context, e *domain.NodeEvent) {
			m.reprompts.WithLabelValues(e.NodeID).Inc()
		},
		OnObjection: func(ctx context.Context, e *domain.NodeEvent) {
			m.objections.WithLabelValues(e.NodeID).Inc()
		},
	}
}
