package executor

import (
	"context"
	"testing"

	"github.com/agentcore/runtime/internal/memory"
	"github.com/agentcore/runtime/internal/toolproc"
	"github.com/agentcore/runtime/pkg/capability"
	"github.com/agentcore/runtime/pkg/protocol"
)

// stubModel answers Chat with a scripted sequence of responses, one per call.
type stubModel struct {
	responses []capability.ChatResponse
	call      int
}

func (s *stubModel) Chat(ctx context.Context, messages []capability.Message, tools []capability.ToolDescription, schema map[string]any) (capability.ChatResponse, error) {
	if s.call >= len(s.responses) {
		return capability.ChatResponse{}, nil
	}
	r := s.responses[s.call]
	s.call++
	return r, nil
}

func (s *stubModel) ChatStream(ctx context.Context, messages []capability.Message, tools []capability.ToolDescription, schema map[string]any) (<-chan capability.StreamResponse, <-chan error) {
	out := make(chan capability.StreamResponse, 1)
	errs := make(chan error, 1)
	if s.call < len(s.responses) {
		r := s.responses[s.call]
		s.call++
		out <- capability.StreamResponse{Choices: []capability.StreamChoice{{Delta: capability.StreamDelta{Content: r.Text}}}}
	}
	close(out)
	close(errs)
	return out, errs
}

type countingTool struct {
	name  string
	calls *int
}

func (t countingTool) Name() string               { return t.name }
func (t countingTool) Description() string        { return "counts" }
func (t countingTool) ArgsSchema() map[string]any { return nil }
func (t countingTool) Run(ctx context.Context, args any) (any, error) {
	*t.calls++
	return "ok", nil
}

func newTestExecutor(model capability.LanguageModel, tools *toolproc.Registry) *Executor {
	return New("actor-1", "test-actor", model, tools, memory.New(), nil, Config{MaxTurns: 10})
}

func TestExecuteNoToolCallsCompletesOnFirstTurn(t *testing.T) {
	model := &stubModel{responses: []capability.ChatResponse{{Text: "final answer"}}}
	ex := newTestExecutor(model, toolproc.NewRegistry())

	var events []protocol.Event
	ex.Emit = func(e protocol.Event) { events = append(events, e) }

	out, err := ex.Execute(context.Background(), protocol.NewTask("hello", nil))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Done || out.Response != "final answer" {
		t.Fatalf("unexpected output: %+v", out)
	}

	if events[0].Type != protocol.EventTaskStarted {
		t.Errorf("first event = %s", events[0].Type)
	}
	last := events[len(events)-1]
	if last.Type != protocol.EventTaskComplete {
		t.Errorf("last event = %s, want task_complete", last.Type)
	}
}

func TestExecuteDispatchesToolCallsThenCompletes(t *testing.T) {
	model := &stubModel{responses: []capability.ChatResponse{
		{Text: "calling a tool", ToolCalls: []capability.RequestedToolCall{{ID: "call-1", Name: "counter", Arguments: "{}"}}},
		{Text: "done now"},
	}}

	calls := 0
	reg := toolproc.NewRegistry()
	reg.Register(countingTool{name: "counter", calls: &calls})

	ex := newTestExecutor(model, reg)
	out, err := ex.Execute(context.Background(), protocol.NewTask("do a thing", nil))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected tool called once, got %d", calls)
	}
	if !out.Done || out.Response != "done now" {
		t.Fatalf("unexpected final output: %+v", out)
	}
}

func TestExecuteAccumulatesToolCallsAcrossTurns(t *testing.T) {
	model := &stubModel{responses: []capability.ChatResponse{
		{ToolCalls: []capability.RequestedToolCall{{ID: "c1", Name: "counter", Arguments: "{}"}}},
		{ToolCalls: []capability.RequestedToolCall{{ID: "c2", Name: "counter", Arguments: "{}"}}},
		{Text: "done"},
	}}

	calls := 0
	reg := toolproc.NewRegistry()
	reg.Register(countingTool{name: "counter", calls: &calls})

	ex := newTestExecutor(model, reg)
	out, err := ex.Execute(context.Background(), protocol.NewTask("two tool turns", nil))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected tool called twice, got %d", calls)
	}
	if len(out.ToolCalls) != 2 {
		t.Fatalf("expected both turns' results in final output, got %d", len(out.ToolCalls))
	}
	if !out.Done || out.Response != "done" {
		t.Fatalf("unexpected final output: %+v", out)
	}
}

func TestExecuteMaxTurnsExceeded(t *testing.T) {
	resp := capability.ChatResponse{
		Text:      "still going",
		ToolCalls: []capability.RequestedToolCall{{ID: "call-x", Name: "counter", Arguments: "{}"}},
	}
	responses := make([]capability.ChatResponse, 3)
	for i := range responses {
		responses[i] = resp
	}
	model := &stubModel{responses: responses}

	calls := 0
	reg := toolproc.NewRegistry()
	reg.Register(countingTool{name: "counter", calls: &calls})

	ex := New("actor-1", "test-actor", model, reg, memory.New(), nil, Config{MaxTurns: 3})
	_, err := ex.Execute(context.Background(), protocol.NewTask("loop forever", nil))
	if err == nil {
		t.Fatal("expected MaxTurnsExceeded")
	}
	if _, ok := err.(*MaxTurnsExceeded); !ok {
		t.Fatalf("expected *MaxTurnsExceeded, got %T: %v", err, err)
	}
}

func TestExecuteFailsFastWhenLockHeld(t *testing.T) {
	model := &stubModel{responses: []capability.ChatResponse{{Text: "ok"}}}
	ex := newTestExecutor(model, toolproc.NewRegistry())

	release, ok := ex.Lock.TryAcquire()
	if !ok {
		t.Fatal("expected to acquire lock")
	}
	defer release()

	_, err := ex.Execute(context.Background(), protocol.NewTask("x", nil))
	if _, ok := err.(ErrAgentBusy); !ok {
		t.Fatalf("expected ErrAgentBusy, got %T: %v", err, err)
	}
}

func TestDedupToolCallsFirstWins(t *testing.T) {
	calls := []capability.RequestedToolCall{
		{ID: "a", Name: "x", Arguments: `{"p":1}`},
		{ID: "a", Name: "x", Arguments: `{"p":2}`},
		{ID: "b", Name: "y", Arguments: `{}`},
	}
	out := dedupToolCalls(calls)
	if len(out) != 2 {
		t.Fatalf("expected 2 deduped calls, got %d", len(out))
	}
	if out[0].Arguments != `{"p":1}` {
		t.Fatalf("expected first occurrence to win, got %q", out[0].Arguments)
	}
}

func TestExecuteStreamCompletes(t *testing.T) {
	model := &stubModel{responses: []capability.ChatResponse{{Text: "streamed answer"}}}
	ex := newTestExecutor(model, toolproc.NewRegistry())

	outputs, errs := ex.ExecuteStream(context.Background(), protocol.NewTask("hi", nil))

	var last protocol.ReActAgentOutput
	for o := range outputs {
		last = o
	}
	if err := <-errs; err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if !last.Done || last.Response != "streamed answer" {
		t.Fatalf("unexpected final streamed output: %+v", last)
	}
}
