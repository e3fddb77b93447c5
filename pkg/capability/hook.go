package capability

import "context"

// ToolCallOutcome is the veto decision a hook may return from OnToolCall.
type ToolCallOutcome int

const (
	// Continue lets dispatch proceed. This is the default behavior when no
	// hook is registered or a hook declines to veto.
	Continue ToolCallOutcome = iota
	// Skip vetoes the tool call; the processor produces a failure result
	// without invoking the tool.
	Skip
)

// Hooks is the chain of asynchronous lifecycle callbacks the executor and
// tool processor invoke. Every method has a no-op default via NopHooks;
// implementations only need to override what they care about.
type Hooks interface {
	OnRunStart(ctx context.Context, subID string)
	OnRunComplete(ctx context.Context, subID string, out ReActAgentOutputRef)
	OnTurnStart(ctx context.Context, subID string, turn int)
	OnTurnComplete(ctx context.Context, subID string, turn int)
	OnToolCall(ctx context.Context, subID, toolName string) ToolCallOutcome
	OnToolStart(ctx context.Context, subID, toolName string)
	OnToolResult(ctx context.Context, subID, toolName string, result any)
	OnToolError(ctx context.Context, subID, toolName string, err error)
	OnAgentCreate(ctx context.Context, actorID string)
	OnAgentShutdown(ctx context.Context, actorID string)
}

// ReActAgentOutputRef is the summary of the executor's output that
// OnRunComplete receives by value: the response text, the number of
// tool-call results (not the results themselves), and the done flag.
type ReActAgentOutputRef struct {
	Response  string
	ToolCalls int
	Done      bool
}

// NopHooks implements Hooks with every method a no-op and OnToolCall always
// returning Continue. Embed it to implement only the hooks you need.
type NopHooks struct{}

func (NopHooks) OnRunStart(context.Context, string)                         {}
func (NopHooks) OnRunComplete(context.Context, string, ReActAgentOutputRef) {}
func (NopHooks) OnTurnStart(context.Context, string, int)                   {}
func (NopHooks) OnTurnComplete(context.Context, string, int)                {}
func (NopHooks) OnToolCall(context.Context, string, string) ToolCallOutcome { return Continue }
func (NopHooks) OnToolStart(context.Context, string, string)                {}
func (NopHooks) OnToolResult(context.Context, string, string, any)          {}
func (NopHooks) OnToolError(context.Context, string, string, error)         {}
func (NopHooks) OnAgentCreate(context.Context, string)                      {}
func (NopHooks) OnAgentShutdown(context.Context, string)                    {}
