package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/agentcore/runtime/pkg/protocol"
)

// TraceSink writes the protocol.Event stream to a JSONL file, one event per
// line, flushed immediately for crash safety. It is an optional, caller-
// attached capture: the core itself persists nothing, but an embedder that
// wants a replayable run log can wire a TraceSink alongside (or instead of)
// a Mapper on the same event stream.
type TraceSink struct {
	mu      sync.Mutex
	writer  io.Writer
	file    *os.File
	header  traceHeader
	started bool
	redact  func(protocol.Event) protocol.Event
}

type traceHeader struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
}

// TraceSinkOption configures a TraceSink.
type TraceSinkOption func(*TraceSink)

// WithTraceRedactor installs a function that returns a redacted copy of an
// event before it is written. A nil redactor (the default) writes events
// unmodified.
func WithTraceRedactor(f func(protocol.Event) protocol.Event) TraceSinkOption {
	return func(s *TraceSink) { s.redact = f }
}

// NewTraceSink wraps w, writing a one-line traceHeader before the first
// event and then one JSON-encoded protocol.Event per line thereafter.
func NewTraceSink(w io.Writer, runID string, opts ...TraceSinkOption) *TraceSink {
	s := &TraceSink{
		writer: w,
		header: traceHeader{Version: 1, RunID: runID, StartedAt: time.Now()},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTraceSinkFile creates (or truncates) path and wraps it in a TraceSink.
// The caller must call Close when done to flush the underlying file handle.
func NewTraceSinkFile(path, runID string, opts ...TraceSinkOption) (*TraceSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create trace file: %w", err)
	}
	s := NewTraceSink(f, runID, opts...)
	s.file = f
	return s, nil
}

// Consume writes e as one JSON line. It is safe to pass directly as a
// Runtime/Executor event sink alongside a Mapper.Consume call; write
// failures are swallowed since losing a debug trace line must never abort
// a running task.
func (s *TraceSink) Consume(e protocol.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.started = true
		s.writeLine(s.header)
	}

	if s.redact != nil {
		e = s.redact(e)
	}
	s.writeLine(e)
}

func (s *TraceSink) writeLine(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = s.writer.Write(data)
}

// Close flushes and closes the underlying file, if TraceSink opened one
// itself via NewTraceSinkFile. It is a no-op for a TraceSink built with
// NewTraceSink against a caller-owned io.Writer.
func (s *TraceSink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
