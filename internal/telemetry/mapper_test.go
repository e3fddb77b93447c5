package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/agentcore/runtime/pkg/protocol"
)

// testMetrics builds a Metrics instance off the default registry so each
// test gets a clean counter state without promauto registration conflicts.
func testMetrics() *Metrics {
	return &Metrics{
		TaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Name: "task_duration_seconds"}),
		TasksTotal:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "tasks_total"}, []string{"status"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Name: "turn_duration_seconds"}),
		ToolDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Name: "tool_call_duration_seconds"}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tool_calls_total",
		}, []string{"tool_name", "status"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "errors_total"}, []string{"kind"}),
	}
}

func newTestMapper(cfg Config) (*Mapper, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	cfg.Tracer = tp.Tracer("test")
	return New(cfg), sr
}

func spanAttr(s sdktrace.ReadOnlySpan, key attribute.Key) (string, bool) {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

func findSpan(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// Replays the event trace of a one-tool-turn task and checks the span tree,
// attributes, and metric observations the mapper derives from it.
func TestMapperProjectsTaskTurnToolHierarchy(t *testing.T) {
	metrics := testMetrics()
	m, sr := newTestMapper(Config{Metrics: metrics})
	ctx := context.Background()

	out := protocol.ReActAgentOutput{Response: "done", Done: true}
	events := []protocol.Event{
		protocol.NewTaskStarted("sub-1", "actor-1", "echo-agent", "echo 42"),
		protocol.NewTurnStarted("sub-1", "actor-1", 1, 10),
		protocol.NewToolCallRequested("sub-1", "actor-1", "c1", "echo", `{"x":42}`),
		protocol.NewToolCallCompleted("sub-1", "actor-1", "c1", "echo", 42),
		protocol.NewTurnCompleted("sub-1", "actor-1", 1, false),
		protocol.NewTurnStarted("sub-1", "actor-1", 2, 10),
		protocol.NewTurnCompleted("sub-1", "actor-1", 2, true),
		protocol.NewTaskComplete("sub-1", "actor-1", "echo-agent", out),
	}
	for _, e := range events {
		m.Consume(ctx, e)
	}

	spans := sr.Ended()
	if len(spans) != 4 {
		t.Fatalf("expected 4 finished spans, got %d", len(spans))
	}

	task := findSpan(spans, "agent.task")
	turn := findSpan(spans, "agent.turn")
	tool := findSpan(spans, "agent.tool_call")
	if task == nil || turn == nil || tool == nil {
		t.Fatal("missing one of agent.task / agent.turn / agent.tool_call spans")
	}

	taskSpanID := task.SpanContext().SpanID()
	for _, child := range []sdktrace.ReadOnlySpan{turn, tool} {
		if child.Parent().SpanID() != taskSpanID {
			t.Errorf("span %s parent = %s, want task span %s",
				child.Name(), child.Parent().SpanID(), taskSpanID)
		}
	}

	if got, _ := spanAttr(tool, "tool.arguments"); got != `{"x":42}` {
		t.Errorf("tool.arguments = %q", got)
	}
	if got, _ := spanAttr(tool, "tool.result"); got != "42" {
		t.Errorf("tool.result = %q", got)
	}
	if got, _ := spanAttr(task, "task.result"); got != "done" {
		t.Errorf("task.result = %q", got)
	}

	if got := testutil.ToFloat64(metrics.TasksTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("tasks_total{completed} = %v", got)
	}
	if got := testutil.ToFloat64(metrics.ToolCallsTotal.WithLabelValues("echo", "completed")); got != 1 {
		t.Errorf("tool_calls_total{echo,completed} = %v", got)
	}

	m.mu.Lock()
	open := len(m.tasks)
	m.mu.Unlock()
	if open != 0 {
		t.Errorf("open task states remaining after terminal event: %d", open)
	}
}

func TestMapperTaskErrorClosesSpanAndCountsError(t *testing.T) {
	metrics := testMetrics()
	m, sr := newTestMapper(Config{Metrics: metrics})
	ctx := context.Background()

	m.Consume(ctx, protocol.NewTaskStarted("sub-2", "actor-1", "a", "x"))
	m.Consume(ctx, protocol.NewTaskError("sub-2", "actor-1", "llm transport failure"))

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 finished span, got %d", len(spans))
	}
	if got, _ := spanAttr(spans[0], "error.message"); got != "llm transport failure" {
		t.Errorf("error.message = %q", got)
	}
	if got := testutil.ToFloat64(metrics.TasksTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("tasks_total{error} = %v", got)
	}
	if got := testutil.ToFloat64(metrics.ErrorsTotal.WithLabelValues("task")); got != 1 {
		t.Errorf("errors_total{task} = %v", got)
	}
}

func TestMapperRedactsMarkedFieldsOnly(t *testing.T) {
	metrics := testMetrics()
	m, sr := newTestMapper(Config{
		Metrics:      metrics,
		RedactFields: map[string]bool{"tool.arguments": true},
	})
	ctx := context.Background()

	m.Consume(ctx, protocol.NewTaskStarted("sub-3", "actor-1", "a", "visible prompt"))
	m.Consume(ctx, protocol.NewToolCallRequested("sub-3", "actor-1", "c1", "echo", `{"secret":true}`))
	m.Consume(ctx, protocol.NewToolCallCompleted("sub-3", "actor-1", "c1", "echo", "ok"))
	m.Consume(ctx, protocol.NewTaskComplete("sub-3", "actor-1", "a", protocol.ReActAgentOutput{Response: "r", Done: true}))

	spans := sr.Ended()
	tool := findSpan(spans, "agent.tool_call")
	if tool == nil {
		t.Fatal("missing tool span")
	}
	if got, _ := spanAttr(tool, "tool.arguments"); got != "[REDACTED]" {
		t.Errorf("tool.arguments = %q, want [REDACTED]", got)
	}
	if got, _ := spanAttr(tool, "tool.result"); got != `"ok"` {
		t.Errorf("tool.result = %q, want unredacted", got)
	}
	task := findSpan(spans, "agent.task")
	if got, _ := spanAttr(task, "task.description"); got != "visible prompt" {
		t.Errorf("task.description = %q, want unredacted", got)
	}

	// Redaction must not alter metric observations.
	if got := testutil.ToFloat64(metrics.ToolCallsTotal.WithLabelValues("echo", "completed")); got != 1 {
		t.Errorf("tool_calls_total{echo,completed} = %v", got)
	}
}

func TestMapperAttributeProviderContributesSpanAttributes(t *testing.T) {
	provider := func(e protocol.Event) []attribute.KeyValue {
		if e.Type != protocol.EventTaskStarted {
			return nil
		}
		return []attribute.KeyValue{attribute.String("deploy.region", "us-east-1")}
	}
	m, sr := newTestMapper(Config{Providers: []AttributeProvider{provider}})
	ctx := context.Background()

	m.Consume(ctx, protocol.NewTaskStarted("sub-4", "actor-1", "a", "x"))
	m.Consume(ctx, protocol.NewTaskComplete("sub-4", "actor-1", "a", protocol.ReActAgentOutput{Done: true}))

	task := findSpan(sr.Ended(), "agent.task")
	if got, _ := spanAttr(task, "deploy.region"); got != "us-east-1" {
		t.Errorf("deploy.region = %q", got)
	}
}

func TestMapperCloseDropsOpenSpans(t *testing.T) {
	m, sr := newTestMapper(Config{})
	ctx := context.Background()

	m.Consume(ctx, protocol.NewTaskStarted("sub-5", "actor-1", "a", "x"))
	m.Consume(ctx, protocol.NewTurnStarted("sub-5", "actor-1", 1, 10))
	m.Consume(ctx, protocol.NewToolCallRequested("sub-5", "actor-1", "c1", "echo", "{}"))

	m.Close()

	if got := len(sr.Ended()); got != 3 {
		t.Fatalf("expected 3 spans ended by Close, got %d", got)
	}
	m.mu.Lock()
	open := len(m.tasks)
	m.mu.Unlock()
	if open != 0 {
		t.Errorf("open task states remaining after Close: %d", open)
	}

	// A terminal event for a dropped task is a no-op, not a panic.
	m.Consume(ctx, protocol.NewTaskComplete("sub-5", "actor-1", "a", protocol.ReActAgentOutput{Done: true}))
}
