// Package toolproc implements the tool processor: a registry of
// capability.Tool implementations plus the dispatch pipeline the ReAct
// executor drives to turn a requested tool call into a protocol.ToolCallResult.
package toolproc

import (
	"fmt"
	"sync"

	"github.com/agentcore/runtime/pkg/capability"
)

// Registry holds the tools an executor may dispatch into, keyed by name.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]capability.Tool
	schemas *compiledSchemaCache
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]capability.Tool), schemas: newCompiledSchemaCache()}
}

// Register adds a tool, overwriting any existing tool of the same name.
func (r *Registry) Register(t capability.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (capability.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Descriptions returns the JSON-Schema function-calling description of every
// registered tool, for inclusion in a LanguageModel.Chat/ChatStream call.
func (r *Registry) Descriptions() []capability.ToolDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]capability.ToolDescription, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, capability.ToolDescription{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.ArgsSchema(),
		})
	}
	return out
}

// ErrToolNotFound reports dispatch against an unregistered tool name.
type ErrToolNotFound struct {
	Name string
}

func (e *ErrToolNotFound) Error() string {
	return fmt.Sprintf("Tool '%s' not found", e.Name)
}
