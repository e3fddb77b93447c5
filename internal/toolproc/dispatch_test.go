package toolproc

import (
	"context"
	"errors"
	"testing"

	"github.com/agentcore/runtime/pkg/capability"
	"github.com/agentcore/runtime/pkg/protocol"
)

type stubTool struct {
	name   string
	schema map[string]any
	run    func(ctx context.Context, args any) (any, error)
}

func (s stubTool) Name() string               { return s.name }
func (s stubTool) Description() string        { return "stub" }
func (s stubTool) ArgsSchema() map[string]any { return s.schema }
func (s stubTool) Run(ctx context.Context, args any) (any, error) {
	return s.run(ctx, args)
}

func echoTool(name string) stubTool {
	return stubTool{
		name: name,
		run: func(ctx context.Context, args any) (any, error) {
			return args, nil
		},
	}
}

func TestDispatchSuccess(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool("echo"))

	var events []protocol.Event
	result := reg.Dispatch(context.Background(), "sub-1", "actor-1",
		protocol.ToolCall{ID: "tc-1", Name: "echo", Arguments: `{"x":1}`},
		capability.NopHooks{},
		func(e protocol.Event) { events = append(events, e) },
	)

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events (requested, completed), got %d", len(events))
	}
	if events[0].Type != protocol.EventToolCallRequested {
		t.Errorf("first event = %s, want %s", events[0].Type, protocol.EventToolCallRequested)
	}
	if events[1].Type != protocol.EventToolCallCompleted {
		t.Errorf("second event = %s, want %s", events[1].Type, protocol.EventToolCallCompleted)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	reg := NewRegistry()

	var events []protocol.Event
	result := reg.Dispatch(context.Background(), "sub-1", "actor-1",
		protocol.ToolCall{ID: "tc-1", Name: "missing"},
		capability.NopHooks{},
		func(e protocol.Event) { events = append(events, e) },
	)

	if result.Success {
		t.Fatal("expected failure for unknown tool")
	}
	errMap, ok := result.Result.(map[string]string)
	if !ok || errMap["error"] != "Tool 'missing' not found" {
		t.Fatalf("unexpected error result: %+v", result.Result)
	}
	if len(events) != 2 || events[1].Type != protocol.EventToolCallFailed {
		t.Fatalf("expected requested+failed events, got %+v", events)
	}
}

func TestDispatchHookVeto(t *testing.T) {
	reg := NewRegistry()
	called := false
	reg.Register(stubTool{name: "echo", run: func(ctx context.Context, args any) (any, error) {
		called = true
		return nil, nil
	}})

	vetoHooks := vetoAll{}
	result := reg.Dispatch(context.Background(), "sub-1", "actor-1",
		protocol.ToolCall{ID: "tc-1", Name: "echo"}, vetoHooks, nil)

	if result.Success {
		t.Fatal("expected veto to produce a failure result")
	}
	if called {
		t.Fatal("tool should not run after veto")
	}
}

type vetoAll struct{ capability.NopHooks }

func (vetoAll) OnToolCall(ctx context.Context, subID, toolName string) capability.ToolCallOutcome {
	return capability.Skip
}

func TestDispatchToolError(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubTool{name: "boom", run: func(ctx context.Context, args any) (any, error) {
		return nil, errors.New("kaboom")
	}})

	result := reg.Dispatch(context.Background(), "sub-1", "actor-1",
		protocol.ToolCall{ID: "tc-1", Name: "boom"}, capability.NopHooks{}, nil)

	if result.Success {
		t.Fatal("expected failure result on tool error")
	}
}

func TestDispatchSchemaValidationFailure(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubTool{
		name: "strict",
		schema: map[string]any{
			"type":                 "object",
			"required":             []any{"n"},
			"additionalProperties": false,
			"properties": map[string]any{
				"n": map[string]any{"type": "number"},
			},
		},
		run: func(ctx context.Context, args any) (any, error) { return "ok", nil },
	})

	result := reg.Dispatch(context.Background(), "sub-1", "actor-1",
		protocol.ToolCall{ID: "tc-1", Name: "strict", Arguments: `{"n":"not a number"}`},
		capability.NopHooks{}, nil)

	if result.Success {
		t.Fatal("expected schema validation failure")
	}
}

func TestDispatchInvalidArgumentsJSON(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool("echo"))

	result := reg.Dispatch(context.Background(), "sub-1", "actor-1",
		protocol.ToolCall{ID: "tc-1", Name: "echo", Arguments: `{not json`},
		capability.NopHooks{}, nil)

	if result.Success {
		t.Fatal("expected failure on invalid JSON arguments")
	}
}
