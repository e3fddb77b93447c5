package toolproc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentcore/runtime/pkg/capability"
	"github.com/agentcore/runtime/pkg/protocol"
)

// EventEmitter receives protocol events as dispatch produces them. A nil
// emitter is valid; events are simply dropped.
type EventEmitter func(protocol.Event)

func (emit EventEmitter) emit(e protocol.Event) {
	if emit != nil {
		emit(e)
	}
}

// Dispatch resolves and invokes a single requested tool call, emitting
// ToolCallRequested/Completed/Failed events and running the hook chain
// around invocation. It never returns an error itself: a dispatch failure
// (unknown tool, hook veto, argument parse failure, tool error) is reported
// as a failed protocol.ToolCallResult, matching how the executor folds tool
// outcomes back into the conversation regardless of success.
func (r *Registry) Dispatch(
	ctx context.Context,
	subID, actorID string,
	call protocol.ToolCall,
	hooks capability.Hooks,
	emit EventEmitter,
) protocol.ToolCallResult {
	if hooks == nil {
		hooks = capability.NopHooks{}
	}

	emit.emit(protocol.NewToolCallRequested(subID, actorID, call.ID, call.Name, call.Arguments))

	if hooks.OnToolCall(ctx, subID, call.Name) == capability.Skip {
		return r.fail(subID, actorID, call, nil, emit, "tool call skipped by hook")
	}

	tool, ok := r.Get(call.Name)
	if !ok {
		return r.fail(subID, actorID, call, nil, emit, (&ErrToolNotFound{Name: call.Name}).Error())
	}

	var args any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			msg := fmt.Sprintf("Failed to parse arguments: %v", err)
			hooks.OnToolError(ctx, subID, call.Name, err)
			return r.fail(subID, actorID, call, nil, emit, msg)
		}
	}

	if err := r.schemas.validateArgs(call.Name, tool.ArgsSchema(), args); err != nil {
		hooks.OnToolError(ctx, subID, call.Name, err)
		return r.fail(subID, actorID, call, args, emit, err.Error())
	}

	hooks.OnToolStart(ctx, subID, call.Name)

	result, err := tool.Run(ctx, args)
	if err != nil {
		hooks.OnToolError(ctx, subID, call.Name, err)
		return r.fail(subID, actorID, call, args, emit, err.Error())
	}

	hooks.OnToolResult(ctx, subID, call.Name, result)
	emit.emit(protocol.NewToolCallCompleted(subID, actorID, call.ID, call.Name, result))

	return protocol.ToolCallResult{
		ToolName:  call.Name,
		Success:   true,
		Arguments: args,
		Result:    result,
	}
}

func (r *Registry) fail(
	subID, actorID string,
	call protocol.ToolCall,
	parsedArgs any,
	emit EventEmitter,
	message string,
) protocol.ToolCallResult {
	emit.emit(protocol.NewToolCallFailed(subID, actorID, call.ID, call.Name, message))
	return protocol.ToolCallResult{
		ToolName:  call.Name,
		Success:   false,
		Arguments: parsedArgs,
		Result:    map[string]string{"error": message},
	}
}
