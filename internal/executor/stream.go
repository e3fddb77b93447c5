package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentcore/runtime/pkg/capability"
	"github.com/agentcore/runtime/pkg/protocol"
)

// ExecuteStream runs the streaming ReAct loop. Unlike Execute, it blocks
// until it can acquire the agent's exclusive lock rather than failing fast:
// a caller opening a stream is explicitly waiting its turn. It returns two
// channels: outputs carries a partial ReActAgentOutput for every non-empty
// content fragment the model streams, one holding the accumulated tool-call
// results after each tool-call turn, and a final value with Done set; errs
// carries at most one error, closing outputs without a final value if the
// run fails. Both channels are closed when the run ends.
func (e *Executor) ExecuteStream(ctx context.Context, task protocol.Task) (<-chan protocol.ReActAgentOutput, <-chan error) {
	outputs := make(chan protocol.ReActAgentOutput)
	errs := make(chan error, 1)

	go func() {
		defer close(outputs)
		defer close(errs)

		release := e.Lock.Acquire()
		defer release()

		if err := e.runStream(ctx, task, outputs); err != nil {
			errs <- err
		}
	}()

	return outputs, errs
}

func (e *Executor) runStream(ctx context.Context, task protocol.Task, outputs chan<- protocol.ReActAgentOutput) error {
	e.Hooks.OnRunStart(ctx, task.SubmissionID)
	e.emit(protocol.NewTaskStarted(task.SubmissionID, e.ActorID, e.ActorName, task.Prompt))

	if err := e.Memory.Remember(ctx, capability.Message{
		Role: capability.RoleUser, Type: capability.ContentText, Content: task.Prompt,
	}); err != nil {
		err = fmt.Errorf("remember task prompt: %w", err)
		e.emit(protocol.NewTaskError(task.SubmissionID, e.ActorID, err.Error()))
		return err
	}
	e.recordTaskBlocking(task)

	var out protocol.ReActAgentOutput

	for turn := 0; turn < e.Config.MaxTurns; turn++ {
		e.Hooks.OnTurnStart(ctx, task.SubmissionID, turn)
		e.emit(protocol.NewTurnStarted(task.SubmissionID, e.ActorID, turn, e.Config.MaxTurns))

		messages, err := e.Memory.Recall(ctx)
		if err != nil {
			err = fmt.Errorf("recall memory: %w", err)
			e.emit(protocol.NewTaskError(task.SubmissionID, e.ActorID, err.Error()))
			return err
		}

		deltas, streamErrs := e.Model.ChatStream(ctx, messages, e.Tools.Descriptions(), nil)
		text, calls, err := e.drainStream(task.SubmissionID, deltas, streamErrs, outputs)
		if err != nil {
			llmErr := &LLMError{Turn: turn, Err: err}
			e.emit(protocol.NewTaskError(task.SubmissionID, e.ActorID, llmErr.Error()))
			return llmErr
		}
		out.Response = text
		calls = dedupToolCalls(calls)

		if len(calls) == 0 {
			if err := e.Memory.Remember(ctx, capability.Message{
				Role: capability.RoleAssistant, Type: capability.ContentText, Content: text,
			}); err != nil {
				err = fmt.Errorf("remember assistant response: %w", err)
				e.emit(protocol.NewTaskError(task.SubmissionID, e.ActorID, err.Error()))
				return err
			}
			out.Done = true
			e.Hooks.OnTurnComplete(ctx, task.SubmissionID, turn)
			e.emit(protocol.NewTurnCompleted(task.SubmissionID, e.ActorID, turn, true))
			e.emit(protocol.NewStreamComplete(task.SubmissionID))
			e.emit(protocol.NewTaskComplete(task.SubmissionID, e.ActorID, e.ActorName, out))
			e.Hooks.OnRunComplete(ctx, task.SubmissionID, capability.ReActAgentOutputRef{
				Response: out.Response, ToolCalls: len(out.ToolCalls), Done: true,
			})
			outputs <- out
			return nil
		}

		if err := e.rememberToolUse(ctx, calls); err != nil {
			e.emit(protocol.NewTaskError(task.SubmissionID, e.ActorID, err.Error()))
			return err
		}

		for _, rc := range calls {
			tc := protocol.ToolCall{ID: rc.ID, Name: rc.Name, Arguments: rc.Arguments}
			result := e.Tools.Dispatch(ctx, task.SubmissionID, e.ActorID, tc, e.Hooks, e.emit)
			out.ToolCalls = append(out.ToolCalls, result)
			e.recordToolCallBlocking(result)

			resultJSON, marshalErr := json.Marshal(result.Result)
			if marshalErr != nil {
				resultJSON = []byte(fmt.Sprintf("%v", result.Result))
			}
			if err := e.Memory.Remember(ctx, capability.Message{
				Role: capability.RoleTool, Type: capability.ContentToolResult, Content: string(resultJSON),
			}); err != nil {
				err = fmt.Errorf("remember tool result: %w", err)
				e.emit(protocol.NewTaskError(task.SubmissionID, e.ActorID, err.Error()))
				return err
			}
		}

		e.Hooks.OnTurnComplete(ctx, task.SubmissionID, turn)
		e.emit(protocol.NewTurnCompleted(task.SubmissionID, e.ActorID, turn, false))

		// The pushed partial for a tool-call turn carries the cumulative
		// tool_calls list with an empty response; out.Response is left
		// holding this turn's text so it can still become the final
		// response if a later turn ends the loop without further tool
		// calls, per the "running response text" step of the loop.
		outputs <- protocol.ReActAgentOutput{ToolCalls: out.ToolCalls, Done: false}
	}

	err := &MaxTurnsExceeded{MaxTurns: e.Config.MaxTurns}
	e.emit(protocol.NewTaskError(task.SubmissionID, e.ActorID, err.Error()))
	return err
}

// drainStream consumes a ChatStream's deltas until the channel closes,
// pushing a partial ReActAgentOutput and emitting a StreamChunk event per
// non-empty content fragment, and tracking any tool calls the model
// requested (deduplicated by id, first occurrence wins, emitting
// StreamToolCall as each new id is seen). It returns the error sent on
// streamErrs, if any, once both channels are drained.
func (e *Executor) drainStream(subID string, deltas <-chan capability.StreamResponse, streamErrs <-chan error, outputs chan<- protocol.ReActAgentOutput) (string, []capability.RequestedToolCall, error) {
	var text string
	var calls []capability.RequestedToolCall
	seen := make(map[string]struct{})
	var streamErr error

	for deltas != nil || streamErrs != nil {
		select {
		case d, ok := <-deltas:
			if !ok {
				deltas = nil
				continue
			}
			for _, choice := range d.Choices {
				if choice.Delta.Content != "" {
					text += choice.Delta.Content
					e.emit(protocol.NewStreamChunk(subID, choice.Delta.Content))
					outputs <- protocol.ReActAgentOutput{Response: choice.Delta.Content, Done: false}
				}
				if choice.Delta.ToolCall != nil {
					if _, dup := seen[choice.Delta.ToolCall.ID]; !dup {
						seen[choice.Delta.ToolCall.ID] = struct{}{}
						calls = append(calls, *choice.Delta.ToolCall)
						tc := protocol.ToolCall{ID: choice.Delta.ToolCall.ID, Name: choice.Delta.ToolCall.Name, Arguments: choice.Delta.ToolCall.Arguments}
						e.emit(protocol.NewStreamToolCall(subID, tc))
					}
				}
			}
		case err, ok := <-streamErrs:
			if !ok {
				streamErrs = nil
				continue
			}
			if err != nil {
				streamErr = err
			}
		}
	}

	return text, calls, streamErr
}
