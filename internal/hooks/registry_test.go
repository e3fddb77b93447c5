package hooks

import (
	"context"
	"testing"

	"github.com/agentcore/runtime/pkg/capability"
)

func TestOnRunStartDispatchesInPriorityOrder(t *testing.T) {
	r := New()
	var order []string

	r.OnRunStartFunc(PriorityLow, func(context.Context, string) { order = append(order, "low") })
	r.OnRunStartFunc(PriorityHighest, func(context.Context, string) { order = append(order, "highest") })
	r.OnRunStartFunc(PriorityNormal, func(context.Context, string) { order = append(order, "normal") })

	r.OnRunStart(context.Background(), "sub-1")

	want := []string{"highest", "normal", "low"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestOnToolCallSkipWinsOverContinue(t *testing.T) {
	r := New()
	r.OnToolCallFunc(PriorityNormal, func(context.Context, string, string) capability.ToolCallOutcome {
		return capability.Continue
	})
	r.OnToolCallFunc(PriorityLow, func(context.Context, string, string) capability.ToolCallOutcome {
		return capability.Skip
	})

	if got := r.OnToolCall(context.Background(), "sub-1", "some_tool"); got != capability.Skip {
		t.Errorf("OnToolCall = %v, want Skip", got)
	}
}

func TestOnToolCallDefaultsToContinue(t *testing.T) {
	r := New()
	if got := r.OnToolCall(context.Background(), "sub-1", "some_tool"); got != capability.Continue {
		t.Errorf("OnToolCall with no handlers = %v, want Continue", got)
	}
}

func TestOnToolCallRunsAllHandlersEvenAfterVeto(t *testing.T) {
	r := New()
	var calls int
	r.OnToolCallFunc(PriorityHighest, func(context.Context, string, string) capability.ToolCallOutcome {
		calls++
		return capability.Skip
	})
	r.OnToolCallFunc(PriorityLowest, func(context.Context, string, string) capability.ToolCallOutcome {
		calls++
		return capability.Continue
	})

	if got := r.OnToolCall(context.Background(), "sub-1", "tool"); got != capability.Skip {
		t.Errorf("OnToolCall = %v, want Skip", got)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want both handlers to run", calls)
	}
}

func TestRegistryImplementsCapabilityHooks(t *testing.T) {
	var _ capability.Hooks = New()
}
