package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors the Mapper observes into as it
// projects the event stream. One instance should be constructed per
// process and shared across every Mapper.
type Metrics struct {
	// TaskDuration measures wall-clock time from TaskStarted to
	// TaskComplete/TaskError, in seconds.
	TaskDuration prometheus.Histogram

	// TasksTotal counts finished tasks by outcome (completed|error).
	TasksTotal *prometheus.CounterVec

	// TurnDuration measures wall-clock time from TurnStarted to
	// TurnCompleted, in seconds.
	TurnDuration prometheus.Histogram

	// ToolDuration measures wall-clock time from ToolCallRequested to
	// ToolCallCompleted/ToolCallFailed, in seconds.
	ToolDuration prometheus.Histogram

	// ToolCallsTotal counts finished tool calls by tool name and outcome.
	ToolCallsTotal *prometheus.CounterVec

	// ErrorsTotal counts errors observed by kind (task|tool).
	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns a fresh Metrics instance. Call it once
// at process startup; promauto registers every collector against the
// default Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		TaskDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentcore_task_duration_seconds",
			Help:    "Duration of a task execution from TaskStarted to its terminal event.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		TasksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_tasks_total",
			Help: "Total number of finished tasks by outcome.",
		}, []string{"status"}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentcore_turn_duration_seconds",
			Help:    "Duration of a single ReAct turn.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		ToolDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentcore_tool_call_duration_seconds",
			Help:    "Duration of a single tool invocation.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		ToolCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_tool_calls_total",
			Help: "Total number of finished tool calls by tool name and outcome.",
		}, []string{"tool_name", "status"}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_errors_total",
			Help: "Total number of errors observed, by kind.",
		}, []string{"kind"}),
	}
}
