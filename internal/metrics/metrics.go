package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/PoluyanbIch/pollquizbot/internal/service"
)

// Collector turns controller notifications into Prometheus series.
type Collector struct {
	selections  *prometheus.CounterVec
	answers     *prometheus.CounterVec
	completions *prometheus.CounterVec
	interrupts  *prometheus.CounterVec
	active      prometheus.Gauge
}

func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		selections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizbot_module_selections_total",
				Help: "Total number of module selections",
			},
			[]string{"module", "abandoned"},
		),
		answers: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizbot_answers_total",
				Help: "Total number of graded answers",
			},
			[]string{"module", "result"}, // result: correct/incorrect
		),
		completions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizbot_module_completions_total",
				Help: "Total number of completed modules",
			},
			[]string{"module"},
		),
		interrupts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizbot_module_interruptions_total",
				Help: "Total number of quizzes ended by a failure",
			},
			[]string{"module"},
		),
		active: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "quizbot_active_quizzes_current",
				Help: "Quizzes started and not yet completed, abandoned ones excluded",
			},
		),
	}
}

func (c *Collector) ModuleSelected(_ context.Context, ev service.SelectionEvent) {
	c.selections.WithLabelValues(ev.Module, strconv.FormatBool(ev.Abandoned)).Inc()
	if !ev.Abandoned {
		c.active.Inc()
	}
}

func (c *Collector) AnswerRecorded(_ context.Context, ev service.AnswerEvent) {
	result := "incorrect"
	if ev.Correct {
		result = "correct"
	}
	c.answers.WithLabelValues(ev.Module, result).Inc()
}

func (c *Collector) ModuleCompleted(_ context.Context, ev service.CompletionEvent) {
	if ev.Interrupted {
		c.interrupts.WithLabelValues(ev.Module).Inc()
	} else {
		c.completions.WithLabelValues(ev.Module).Inc()
	}
	c.active.Dec()
}
