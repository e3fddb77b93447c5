package executor

import "fmt"

// LLMError wraps a failure returned by the configured capability.LanguageModel.
type LLMError struct {
	Turn int
	Err  error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("executor: language model call failed on turn %d: %v", e.Turn, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// MaxTurnsExceeded reports that the executor reached its configured turn
// budget without the model producing a final (tool-call-free) response.
type MaxTurnsExceeded struct {
	MaxTurns int
}

func (e *MaxTurnsExceeded) Error() string {
	return fmt.Sprintf("executor: exceeded max turns (%d) without a final response", e.MaxTurns)
}

// AgentOutputError reports that a structured output response failed to
// satisfy the caller-supplied output schema.
type AgentOutputError struct {
	Reason string
	Err    error
}

func (e *AgentOutputError) Error() string {
	return fmt.Sprintf("executor: agent output invalid: %s: %v", e.Reason, e.Err)
}

func (e *AgentOutputError) Unwrap() error { return e.Err }

// ErrAgentBusy is returned by Execute when another non-streaming or
// streaming call already owns the agent's exclusive lock.
type ErrAgentBusy struct{}

func (ErrAgentBusy) Error() string {
	return "executor: agent is already executing another task"
}
