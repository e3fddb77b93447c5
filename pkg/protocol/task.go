// Package protocol defines the wire-level data model shared between the
// ReAct executor, the actor runtime, and the telemetry mapper: tasks, tool
// calls and their results, the executor's output value, and the tagged
// Event stream that threads all three together.
package protocol

import "github.com/google/uuid"

// Task is a unit of work submitted to an actor. It is immutable after
// creation and is consumed at most once per subscribed actor.
type Task struct {
	SubmissionID string `json:"submission_id"`
	Prompt       string `json:"prompt"`
	Image        []byte `json:"image,omitempty"`
}

// NewTask creates a Task with a generated SubmissionID.
func NewTask(prompt string, image []byte) Task {
	return Task{
		SubmissionID: uuid.NewString(),
		Prompt:       prompt,
		Image:        image,
	}
}

// ToolCall is a single tool invocation requested by the model within a turn.
// Arguments is the raw JSON text the model produced; it is parsed by the
// tool processor, not here.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCallResult is the outcome of dispatching a ToolCall. Arguments holds
// the parsed JSON arguments (nil if parsing failed); Result holds arbitrary
// JSON-shaped output, or an {"error": "..."} object on failure.
type ToolCallResult struct {
	ToolName  string `json:"tool_name"`
	Success   bool   `json:"success"`
	Arguments any    `json:"arguments"`
	Result    any    `json:"result"`
}

// ReActAgentOutput is both the final return value of a non-streaming
// execution and the incremental value pushed during a streaming one.
type ReActAgentOutput struct {
	Response  string           `json:"response"`
	ToolCalls []ToolCallResult `json:"tool_calls"`
	Done      bool             `json:"done"`
}
