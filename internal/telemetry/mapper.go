// Package telemetry projects the protocol.Event stream into an OpenTelemetry
// span tree (agent.task / agent.turn / agent.tool_call) with derived
// Prometheus metrics, redacting configured fields before either leaves the
// process.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentcore/runtime/pkg/protocol"
)

// AttributeProvider contributes extra span/metric attributes for an event,
// beyond the mapper's own. Implementations should be cheap; they run inline
// with event consumption.
type AttributeProvider func(e protocol.Event) []attribute.KeyValue

// Redactor rewrites a string field before it is attached to a span or log
// line. The default redacts nothing beyond what Config.RedactFields names.
type Redactor func(fieldName, value string) string

// Config controls a Mapper's behavior.
type Config struct {
	Tracer    trace.Tracer
	Metrics   *Metrics
	Providers []AttributeProvider
	Redact    Redactor
	// RedactFields names event fields (task.description, task.result,
	// tool.arguments, tool.result) to pass through Redact before they become
	// span attributes. Each field is configured independently.
	RedactFields map[string]bool
	// RuntimeID, when set, is attached to every task span as agent.runtime_id.
	RuntimeID string
}

// DefaultRedactor replaces a value outright with the literal "[REDACTED]"
// marker.
func DefaultRedactor(fieldName, value string) string {
	return "[REDACTED]"
}

type turnState struct {
	ctx     context.Context
	span    trace.Span
	started time.Time
}

type taskState struct {
	ctx       context.Context
	span      trace.Span
	started   time.Time
	turns     map[int]*turnState
	toolCalls map[string]*turnState
}

// Mapper is a stateful projection from the event stream to spans and
// metrics. One Mapper instance is safe to share across every actor in a
// process; state is keyed by submission id.
type Mapper struct {
	cfg Config

	mu    sync.Mutex
	tasks map[string]*taskState
}

// New constructs a Mapper. cfg.Tracer and cfg.Metrics should come from an
// already-configured OTel SDK / Prometheus registry; Mapper does not set
// either up itself.
func New(cfg Config) *Mapper {
	if cfg.Redact == nil {
		cfg.Redact = DefaultRedactor
	}
	return &Mapper{cfg: cfg, tasks: make(map[string]*taskState)}
}

// attrs runs every registered AttributeProvider for e and flattens their
// contributions into one slice, for attaching to the span the event just
// finalized (task_started, task_completed, tool_started, tool_completed,
// tool_failed per the projection rules).
func (m *Mapper) attrs(e protocol.Event) []attribute.KeyValue {
	var out []attribute.KeyValue
	for _, p := range m.cfg.Providers {
		out = append(out, p(e)...)
	}
	return out
}

// redactField passes value through cfg.Redact only when fieldName is
// explicitly marked in cfg.RedactFields; an absent or false entry leaves
// value untouched, matching "configured independently" redaction.
func (m *Mapper) redactField(fieldName, value string) string {
	if !m.cfg.RedactFields[fieldName] {
		return value
	}
	return m.cfg.Redact(fieldName, value)
}

// Consume folds one event into the mapper's span tree and metrics. It is
// safe for concurrent use: one mutex guards the open spans of every
// submission id. Events for the same submission id are expected to arrive
// in the order the executor produced them.
func (m *Mapper) Consume(ctx context.Context, e protocol.Event) {
	switch e.Type {
	case protocol.EventTaskStarted:
		m.onTaskStarted(ctx, e)
	case protocol.EventTurnStarted:
		m.onTurnStarted(e.TurnStarted)
	case protocol.EventTurnCompleted:
		m.onTurnCompleted(e.TurnCompleted)
	case protocol.EventToolCallRequested:
		m.onToolCallRequested(e)
	case protocol.EventToolCallCompleted:
		m.onToolCallSucceeded(e)
	case protocol.EventToolCallFailed:
		m.onToolCallFailed(e)
	case protocol.EventTaskComplete:
		if e.TaskComplete != nil {
			m.onTaskEnd(e, e.TaskComplete.SubID, e.TaskComplete.Result.Response, nil)
		}
	case protocol.EventTaskError:
		if e.TaskError != nil {
			m.onTaskEnd(e, e.TaskError.SubID, e.TaskError.Error, &eventError{e.TaskError.Error})
		}
	// StreamChunk, StreamToolCall, StreamComplete, PublishMessage carry no
	// span/metric projection.
	default:
	}
}

type eventError struct{ msg string }

func (e *eventError) Error() string { return e.msg }

func (m *Mapper) onTaskStarted(ctx context.Context, e protocol.Event) {
	p := e.TaskStarted
	if p == nil || m.cfg.Tracer == nil {
		return
	}
	description := m.redactField("task.description", p.TaskDescription)
	attrs := []attribute.KeyValue{
		attribute.String("agent.submission_id", p.SubID),
		attribute.String("agent.actor_id", p.ActorID),
		attribute.String("agent.actor_name", p.ActorName),
		attribute.String("task.description", description),
	}
	if m.cfg.RuntimeID != "" {
		attrs = append(attrs, attribute.String("agent.runtime_id", m.cfg.RuntimeID))
	}
	attrs = append(attrs, m.attrs(e)...)

	spanCtx, span := m.cfg.Tracer.Start(ctx, "agent.task", trace.WithAttributes(attrs...))

	m.mu.Lock()
	m.tasks[p.SubID] = &taskState{
		ctx: spanCtx, span: span, started: time.Now(),
		turns:     make(map[int]*turnState),
		toolCalls: make(map[string]*turnState),
	}
	m.mu.Unlock()
}

func (m *Mapper) task(subID string) *taskState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[subID]
}

func (m *Mapper) onTurnStarted(p *protocol.TurnStartedPayload) {
	if p == nil {
		return
	}
	ts := m.task(p.SubID)
	if ts == nil || m.cfg.Tracer == nil {
		return
	}
	spanCtx, span := m.cfg.Tracer.Start(ts.ctx, "agent.turn",
		trace.WithAttributes(attribute.Int("agent.turn_number", p.TurnNum)))

	m.mu.Lock()
	ts.turns[p.TurnNum] = &turnState{ctx: spanCtx, span: span, started: time.Now()}
	m.mu.Unlock()
}

func (m *Mapper) onTurnCompleted(p *protocol.TurnCompletedPayload) {
	if p == nil {
		return
	}
	ts := m.task(p.SubID)
	if ts == nil {
		return
	}
	m.mu.Lock()
	turn := ts.turns[p.TurnNum]
	delete(ts.turns, p.TurnNum)
	m.mu.Unlock()
	if turn == nil {
		return
	}
	turn.span.SetAttributes(attribute.Bool("agent.final_turn", p.FinalTurn))
	turn.span.End()
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.TurnDuration.Observe(time.Since(turn.started).Seconds())
	}
}

func (m *Mapper) onToolCallRequested(e protocol.Event) {
	p := e.ToolCallRequested
	if p == nil {
		return
	}
	ts := m.task(p.SubID)
	if ts == nil || m.cfg.Tracer == nil {
		return
	}
	args := m.redactField("tool.arguments", p.Arguments)
	attrs := []attribute.KeyValue{
		attribute.String("agent.tool_name", p.ToolName),
		attribute.String("agent.tool_call_id", p.ID),
		attribute.String("tool.arguments", args),
	}
	attrs = append(attrs, m.attrs(e)...)

	spanCtx, span := m.cfg.Tracer.Start(ts.ctx, "agent.tool_call", trace.WithAttributes(attrs...))

	m.mu.Lock()
	ts.toolCalls[p.ID] = &turnState{ctx: spanCtx, span: span, started: time.Now()}
	m.mu.Unlock()
}

func (m *Mapper) onToolCallSucceeded(e protocol.Event) {
	p := e.ToolCallCompleted
	if p == nil {
		return
	}
	resultJSON, marshalErr := json.Marshal(p.Result)
	if marshalErr != nil {
		resultJSON = []byte(fmt.Sprintf("%v", p.Result))
	}
	m.endToolCall(e, p.SubID, p.ID, p.ToolName, true, string(resultJSON))
}

func (m *Mapper) onToolCallFailed(e protocol.Event) {
	p := e.ToolCallFailed
	if p == nil {
		return
	}
	m.endToolCall(e, p.SubID, p.ID, p.ToolName, false, p.Error)
}

func (m *Mapper) endToolCall(e protocol.Event, subID, id, toolName string, success bool, resultOrErr string) {
	ts := m.task(subID)
	if ts == nil {
		return
	}
	m.mu.Lock()
	call := ts.toolCalls[id]
	delete(ts.toolCalls, id)
	m.mu.Unlock()
	if call == nil {
		return
	}

	call.span.SetAttributes(attribute.String("agent.tool_name", toolName))
	if success {
		call.span.SetAttributes(attribute.String("tool.result", m.redactField("tool.result", resultOrErr)))
		call.span.SetStatus(codes.Ok, "")
	} else {
		call.span.SetStatus(codes.Error, m.redactField("tool.result", resultOrErr))
		call.span.RecordError(&eventError{resultOrErr})
	}
	for _, kv := range m.attrs(e) {
		call.span.SetAttributes(kv)
	}
	call.span.End()

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ToolDuration.Observe(time.Since(call.started).Seconds())
		m.cfg.Metrics.ToolCallsTotal.WithLabelValues(toolName, outcomeLabel(success)).Inc()
		if !success {
			m.cfg.Metrics.ErrorsTotal.WithLabelValues("tool").Inc()
		}
	}
}

// Close drops every open span without setting a final status, for use when
// the event stream ends before the terminal events of in-flight tasks
// arrive. After Close the mapper's state is empty; it may keep consuming
// events, though events for tasks dropped here will find no open span.
func (m *Mapper) Close() {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = make(map[string]*taskState)
	m.mu.Unlock()

	for _, ts := range tasks {
		for _, call := range ts.toolCalls {
			call.span.End()
		}
		for _, turn := range ts.turns {
			turn.span.End()
		}
		ts.span.End()
	}
}

func outcomeLabel(success bool) string {
	if success {
		return "completed"
	}
	return "error"
}

// onTaskEnd closes the task span for a TaskComplete or TaskError event.
// result is the task's response text (TaskComplete) or error message
// (TaskError); resultErr is non-nil only for TaskError.
func (m *Mapper) onTaskEnd(e protocol.Event, subID, result string, resultErr error) {
	m.mu.Lock()
	ts := m.tasks[subID]
	delete(m.tasks, subID)
	m.mu.Unlock()
	if ts == nil {
		return
	}

	if resultErr != nil {
		msg := m.redactField("task.result", resultErr.Error())
		ts.span.SetStatus(codes.Error, msg)
		ts.span.RecordError(&eventError{msg})
		ts.span.SetAttributes(attribute.String("error.message", msg))
	} else {
		ts.span.SetAttributes(attribute.String("task.result", m.redactField("task.result", result)))
		ts.span.SetStatus(codes.Ok, "")
	}
	for _, kv := range m.attrs(e) {
		ts.span.SetAttributes(kv)
	}
	ts.span.End()

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.TaskDuration.Observe(time.Since(ts.started).Seconds())
		m.cfg.Metrics.TasksTotal.WithLabelValues(outcomeLabel(resultErr == nil)).Inc()
		if resultErr != nil {
			m.cfg.Metrics.ErrorsTotal.WithLabelValues("task").Inc()
		}
	}
}
