// Package memory provides the default in-process Memory capability and the
// exclusive-ownership wrapper the executor uses to serialize access to an
// agent's state and memory.
package memory

import (
	"context"
	"sync"

	"github.com/agentcore/runtime/pkg/capability"
)

// InMemory is the default capability.Memory implementation: an ordered,
// process-local message list. It is not durable across restarts, matching
// the capability's non-goal.
type InMemory struct {
	mu       sync.Mutex
	messages []capability.Message
}

// New returns an empty in-memory history.
func New() *InMemory {
	return &InMemory{}
}

// NewWithHistory seeds the history with an existing message list.
func NewWithHistory(seed []capability.Message) *InMemory {
	m := &InMemory{messages: make([]capability.Message, len(seed))}
	copy(m.messages, seed)
	return m
}

func (m *InMemory) Recall(ctx context.Context) ([]capability.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]capability.Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}

func (m *InMemory) Remember(ctx context.Context, msg capability.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

var _ capability.Memory = (*InMemory)(nil)
