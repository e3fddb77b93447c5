// Package executor implements the ReAct turn loop: repeatedly calling a
// capability.LanguageModel, dispatching any requested tool calls through a
// toolproc.Registry, and feeding results back into the conversation until
// the model produces a response with no further tool calls or the turn
// budget is exhausted.
package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentcore/runtime/internal/memory"
	"github.com/agentcore/runtime/internal/toolproc"
	"github.com/agentcore/runtime/pkg/capability"
	"github.com/agentcore/runtime/pkg/protocol"
)

// Config bounds a single execution.
type Config struct {
	// MaxTurns caps the number of model round-trips before MaxTurnsExceeded
	// is returned. A turn is one Chat/ChatStream call plus, if requested,
	// the dispatch of its tool calls.
	MaxTurns int
}

// DefaultConfig caps executions at ten turns.
func DefaultConfig() Config {
	return Config{MaxTurns: 10}
}

// Executor drives one actor's ReAct loop. It is not safe for concurrent
// Execute/ExecuteStream calls against the same instance; the Lock field
// enforces the try-lock/blocking-lock asymmetry described by the
// exclusive-ownership model.
type Executor struct {
	ActorID   string
	ActorName string

	Model  capability.LanguageModel
	Tools  *toolproc.Registry
	Memory capability.Memory
	Hooks  capability.Hooks

	Config Config
	Lock   *memory.ExclusiveLock

	// State records tasks and tool-call results this executor has
	// processed. StateLock guards it independently of Lock: the
	// non-streaming path records under a best-effort try-lock and skips on
	// contention (the calling context already holds it), while the
	// streaming path, running on its own goroutine, blocks.
	State     *protocol.AgentState
	StateLock *memory.ExclusiveLock

	// Emit, when non-nil, receives every protocol.Event the executor
	// produces, in order. Callers wire this to a runtime's publish path or
	// a telemetry mapper.
	Emit func(protocol.Event)
}

// New constructs an Executor with a fresh exclusive lock. hooks may be nil,
// in which case capability.NopHooks is used.
func New(actorID, actorName string, model capability.LanguageModel, tools *toolproc.Registry, mem capability.Memory, hooks capability.Hooks, cfg Config) *Executor {
	if hooks == nil {
		hooks = capability.NopHooks{}
	}
	return &Executor{
		ActorID:   actorID,
		ActorName: actorName,
		Model:     model,
		Tools:     tools,
		Memory:    mem,
		Hooks:     hooks,
		Config:    cfg,
		Lock:      memory.NewExclusiveLock(),
		State:     &protocol.AgentState{},
		StateLock: memory.NewExclusiveLock(),
	}
}

// recordTaskBestEffort records task in agent state under a non-blocking
// try-lock, skipping silently on contention. Used by the non-streaming
// path per the try-lock/blocking-lock asymmetry documented on StateLock.
func (e *Executor) recordTaskBestEffort(task protocol.Task) {
	release, ok := e.StateLock.TryAcquire()
	if !ok {
		return
	}
	defer release()
	e.State.RecordTask(task)
}

// recordToolCallBestEffort records a tool call result in agent state under
// a non-blocking try-lock, skipping silently on contention.
func (e *Executor) recordToolCallBestEffort(result protocol.ToolCallResult) {
	release, ok := e.StateLock.TryAcquire()
	if !ok {
		return
	}
	defer release()
	e.State.RecordToolCall(result)
}

// recordTaskBlocking and recordToolCallBlocking are the streaming path's
// equivalents: they block until ownership is granted rather than skipping.
func (e *Executor) recordTaskBlocking(task protocol.Task) {
	release := e.StateLock.Acquire()
	defer release()
	e.State.RecordTask(task)
}

func (e *Executor) recordToolCallBlocking(result protocol.ToolCallResult) {
	release := e.StateLock.Acquire()
	defer release()
	e.State.RecordToolCall(result)
}

func (e *Executor) emit(ev protocol.Event) {
	if e.Emit != nil {
		e.Emit(ev)
	}
}

// Execute runs the non-streaming ReAct loop to completion for a single
// task. It competes for the agent's exclusive lock with TryAcquire and
// returns ErrAgentBusy immediately if another call already owns it, rather
// than queuing behind it.
//
// Per the redesign in effect here, a TaskComplete event is emitted on every
// successful return, not only when the model's own loop exits without
// further tool calls.
func (e *Executor) Execute(ctx context.Context, task protocol.Task) (protocol.ReActAgentOutput, error) {
	release, ok := e.Lock.TryAcquire()
	if !ok {
		return protocol.ReActAgentOutput{}, ErrAgentBusy{}
	}
	defer release()

	return e.run(ctx, task)
}

func (e *Executor) run(ctx context.Context, task protocol.Task) (protocol.ReActAgentOutput, error) {
	e.Hooks.OnRunStart(ctx, task.SubmissionID)
	e.emit(protocol.NewTaskStarted(task.SubmissionID, e.ActorID, e.ActorName, task.Prompt))

	if err := e.Memory.Remember(ctx, capability.Message{
		Role: capability.RoleUser, Type: capability.ContentText, Content: task.Prompt,
	}); err != nil {
		return e.fail(ctx, task, fmt.Errorf("remember task prompt: %w", err))
	}
	e.recordTaskBestEffort(task)

	var out protocol.ReActAgentOutput

	for turn := 0; turn < e.Config.MaxTurns; turn++ {
		e.Hooks.OnTurnStart(ctx, task.SubmissionID, turn)
		e.emit(protocol.NewTurnStarted(task.SubmissionID, e.ActorID, turn, e.Config.MaxTurns))

		messages, err := e.Memory.Recall(ctx)
		if err != nil {
			return e.fail(ctx, task, fmt.Errorf("recall memory: %w", err))
		}

		resp, err := e.Model.Chat(ctx, messages, e.Tools.Descriptions(), nil)
		if err != nil {
			return e.fail(ctx, task, &LLMError{Turn: turn, Err: err})
		}

		calls := dedupToolCalls(resp.ToolCalls)
		out.Response = resp.Text

		if len(calls) == 0 {
			if resp.Text != "" {
				if err := e.Memory.Remember(ctx, capability.Message{
					Role: capability.RoleAssistant, Type: capability.ContentText, Content: resp.Text,
				}); err != nil {
					return e.fail(ctx, task, fmt.Errorf("remember assistant response: %w", err))
				}
			}
			out.Done = true
			e.Hooks.OnTurnComplete(ctx, task.SubmissionID, turn)
			e.emit(protocol.NewTurnCompleted(task.SubmissionID, e.ActorID, turn, true))
			return e.complete(ctx, task, out)
		}

		if err := e.rememberToolUse(ctx, calls); err != nil {
			return e.fail(ctx, task, err)
		}

		for _, rc := range calls {
			tc := protocol.ToolCall{ID: rc.ID, Name: rc.Name, Arguments: rc.Arguments}
			result := e.Tools.Dispatch(ctx, task.SubmissionID, e.ActorID, tc, e.Hooks, e.emit)
			out.ToolCalls = append(out.ToolCalls, result)
			e.recordToolCallBestEffort(result)

			resultJSON, marshalErr := json.Marshal(result.Result)
			if marshalErr != nil {
				resultJSON = []byte(fmt.Sprintf("%v", result.Result))
			}
			if err := e.Memory.Remember(ctx, capability.Message{
				Role: capability.RoleTool, Type: capability.ContentToolResult, Content: string(resultJSON),
			}); err != nil {
				return e.fail(ctx, task, fmt.Errorf("remember tool result: %w", err))
			}
		}

		e.Hooks.OnTurnComplete(ctx, task.SubmissionID, turn)
		e.emit(protocol.NewTurnCompleted(task.SubmissionID, e.ActorID, turn, false))
	}

	return e.fail(ctx, task, &MaxTurnsExceeded{MaxTurns: e.Config.MaxTurns})
}

// rememberToolUse appends the assistant's tool-use message to memory: the
// requested calls themselves, serialized, so a later recall shows the model
// what it asked for alongside the tool-result messages that follow.
func (e *Executor) rememberToolUse(ctx context.Context, calls []capability.RequestedToolCall) error {
	requested := make([]protocol.ToolCall, 0, len(calls))
	for _, rc := range calls {
		requested = append(requested, protocol.ToolCall{ID: rc.ID, Name: rc.Name, Arguments: rc.Arguments})
	}
	content, err := json.Marshal(requested)
	if err != nil {
		return fmt.Errorf("marshal tool-use message: %w", err)
	}
	if err := e.Memory.Remember(ctx, capability.Message{
		Role: capability.RoleAssistant, Type: capability.ContentToolUse, Content: string(content),
	}); err != nil {
		return fmt.Errorf("remember tool-use message: %w", err)
	}
	return nil
}

func (e *Executor) complete(ctx context.Context, task protocol.Task, out protocol.ReActAgentOutput) (protocol.ReActAgentOutput, error) {
	e.emit(protocol.NewTaskComplete(task.SubmissionID, e.ActorID, e.ActorName, out))
	e.Hooks.OnRunComplete(ctx, task.SubmissionID, capability.ReActAgentOutputRef{
		Response: out.Response, ToolCalls: len(out.ToolCalls), Done: out.Done,
	})
	return out, nil
}

func (e *Executor) fail(ctx context.Context, task protocol.Task, err error) (protocol.ReActAgentOutput, error) {
	e.emit(protocol.NewTaskError(task.SubmissionID, e.ActorID, err.Error()))
	e.Hooks.OnRunComplete(ctx, task.SubmissionID, capability.ReActAgentOutputRef{})
	return protocol.ReActAgentOutput{}, err
}

// dedupToolCalls resolves duplicate tool-call ids the model may emit across
// streamed deltas: the first occurrence of a given id wins and later
// fragments sharing that id are dropped outright, with no argument
// concatenation.
func dedupToolCalls(calls []capability.RequestedToolCall) []capability.RequestedToolCall {
	seen := make(map[string]struct{}, len(calls))
	out := make([]capability.RequestedToolCall, 0, len(calls))
	for _, c := range calls {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
