// Package hooks implements the registration and dispatch mechanism behind
// the capability.Hooks chain: priority-ordered handlers per lifecycle point,
// with OnToolCall able to veto dispatch.
package hooks

import (
	"context"
	"sort"
	"sync"

	"github.com/agentcore/runtime/pkg/capability"
)

// Priority determines the order handlers run in; lower values run first.
type Priority int

const (
	PriorityHighest Priority = 0
	PriorityHigh    Priority = 25
	PriorityNormal  Priority = 50
	PriorityLow     Priority = 75
	PriorityLowest  Priority = 100
)

type entry[F any] struct {
	priority Priority
	fn       F
}

// Registry is a concrete capability.Hooks built from independently
// registered handlers per lifecycle point, dispatched in priority order.
// Registration and dispatch are both safe for concurrent use: registration
// takes the write lock and every dispatch takes the read lock.
type Registry struct {
	mu sync.RWMutex

	onRunStart      []entry[func(context.Context, string)]
	onRunComplete   []entry[func(context.Context, string, capability.ReActAgentOutputRef)]
	onTurnStart     []entry[func(context.Context, string, int)]
	onTurnComplete  []entry[func(context.Context, string, int)]
	onToolCall      []entry[func(context.Context, string, string) capability.ToolCallOutcome]
	onToolStart     []entry[func(context.Context, string, string)]
	onToolResult    []entry[func(context.Context, string, string, any)]
	onToolError     []entry[func(context.Context, string, string, error)]
	onAgentCreate   []entry[func(context.Context, string)]
	onAgentShutdown []entry[func(context.Context, string)]
}

// New creates an empty registry. Every lifecycle point defaults to a no-op,
// and OnToolCall defaults to capability.Continue, matching capability.NopHooks.
func New() *Registry {
	return &Registry{}
}

func insertSorted[F any](list []entry[F], priority Priority, fn F) []entry[F] {
	list = append(list, entry[F]{priority, fn})
	sort.SliceStable(list, func(i, j int) bool { return list[i].priority < list[j].priority })
	return list
}

func (r *Registry) OnRunStartFunc(p Priority, fn func(context.Context, string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRunStart = insertSorted(r.onRunStart, p, fn)
}

func (r *Registry) OnRunCompleteFunc(p Priority, fn func(context.Context, string, capability.ReActAgentOutputRef)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRunComplete = insertSorted(r.onRunComplete, p, fn)
}

func (r *Registry) OnTurnStartFunc(p Priority, fn func(context.Context, string, int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTurnStart = insertSorted(r.onTurnStart, p, fn)
}

func (r *Registry) OnTurnCompleteFunc(p Priority, fn func(context.Context, string, int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTurnComplete = insertSorted(r.onTurnComplete, p, fn)
}

// OnToolCallFunc registers a veto handler. The first handler (in priority
// order) to return Skip wins; remaining handlers still run so they can
// observe the call, but cannot un-veto it.
func (r *Registry) OnToolCallFunc(p Priority, fn func(context.Context, string, string) capability.ToolCallOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onToolCall = insertSorted(r.onToolCall, p, fn)
}

func (r *Registry) OnToolStartFunc(p Priority, fn func(context.Context, string, string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onToolStart = insertSorted(r.onToolStart, p, fn)
}

func (r *Registry) OnToolResultFunc(p Priority, fn func(context.Context, string, string, any)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onToolResult = insertSorted(r.onToolResult, p, fn)
}

func (r *Registry) OnToolErrorFunc(p Priority, fn func(context.Context, string, string, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onToolError = insertSorted(r.onToolError, p, fn)
}

func (r *Registry) OnAgentCreateFunc(p Priority, fn func(context.Context, string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAgentCreate = insertSorted(r.onAgentCreate, p, fn)
}

func (r *Registry) OnAgentShutdownFunc(p Priority, fn func(context.Context, string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAgentShutdown = insertSorted(r.onAgentShutdown, p, fn)
}

func (r *Registry) OnRunStart(ctx context.Context, subID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.onRunStart {
		e.fn(ctx, subID)
	}
}

func (r *Registry) OnRunComplete(ctx context.Context, subID string, out capability.ReActAgentOutputRef) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.onRunComplete {
		e.fn(ctx, subID, out)
	}
}

func (r *Registry) OnTurnStart(ctx context.Context, subID string, turn int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.onTurnStart {
		e.fn(ctx, subID, turn)
	}
}

func (r *Registry) OnTurnComplete(ctx context.Context, subID string, turn int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.onTurnComplete {
		e.fn(ctx, subID, turn)
	}
}

func (r *Registry) OnToolCall(ctx context.Context, subID, toolName string) capability.ToolCallOutcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	outcome := capability.Continue
	for _, e := range r.onToolCall {
		if e.fn(ctx, subID, toolName) == capability.Skip {
			outcome = capability.Skip
		}
	}
	return outcome
}

func (r *Registry) OnToolStart(ctx context.Context, subID, toolName string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.onToolStart {
		e.fn(ctx, subID, toolName)
	}
}

func (r *Registry) OnToolResult(ctx context.Context, subID, toolName string, result any) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.onToolResult {
		e.fn(ctx, subID, toolName, result)
	}
}

func (r *Registry) OnToolError(ctx context.Context, subID, toolName string, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.onToolError {
		e.fn(ctx, subID, toolName, err)
	}
}

func (r *Registry) OnAgentCreate(ctx context.Context, actorID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.onAgentCreate {
		e.fn(ctx, actorID)
	}
}

func (r *Registry) OnAgentShutdown(ctx context.Context, actorID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.onAgentShutdown {
		e.fn(ctx, actorID)
	}
}

var _ capability.Hooks = (*Registry)(nil)
