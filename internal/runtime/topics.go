package runtime

import (
	"fmt"
	"sync"

	"github.com/agentcore/runtime/pkg/protocol"
)

// ErrTopicTypeMismatch reports a subscribe or publish call against a topic
// name already bound to a different payload type. A topic's type is fixed
// by whichever call registers it first.
type ErrTopicTypeMismatch struct {
	Topic string
	Want  string
	Got   string
}

func (e *ErrTopicTypeMismatch) Error() string {
	return fmt.Sprintf("runtime: topic %q is bound to type %q, got %q", e.Topic, e.Want, e.Got)
}

// topic holds the type a name is bound to and its ordered subscriber list.
// Subscriber order is preserved so fan-out is deterministic, matching the
// single ordered listener set a pub/sub hub keeps per key.
type topic struct {
	typeID      string
	subscribers []chan protocol.Task
}

// topicTable is the name -> (type, ordered subscribers) registry a Runtime
// uses to route published tasks. One lock guards every subscriber set; a
// publish or subscribe naming a mismatched payload type is rejected rather
// than silently accepted.
type topicTable struct {
	mu     sync.RWMutex
	topics map[string]*topic
}

func newTopicTable() *topicTable {
	return &topicTable{topics: make(map[string]*topic)}
}

// subscribeBufferSize bounds each subscriber's task channel; a full channel
// causes Publish to report ErrPublishFull for that subscriber rather than
// block the publisher indefinitely.
const subscribeBufferSize = 64

// Subscribe registers a new listener on topicName bound to typeID, creating
// the topic if this is the first subscriber. It returns ErrTopicTypeMismatch
// if the topic already exists under a different type.
func (t *topicTable) Subscribe(topicName, typeID string) (<-chan protocol.Task, func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tp, ok := t.topics[topicName]
	if !ok {
		tp = &topic{typeID: typeID}
		t.topics[topicName] = tp
	} else if tp.typeID != typeID {
		return nil, nil, &ErrTopicTypeMismatch{Topic: topicName, Want: tp.typeID, Got: typeID}
	}

	ch := make(chan protocol.Task, subscribeBufferSize)
	tp.subscribers = append(tp.subscribers, ch)

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		cur, ok := t.topics[topicName]
		if !ok {
			return
		}
		for i, sub := range cur.subscribers {
			if sub == ch {
				cur.subscribers = append(cur.subscribers[:i], cur.subscribers[i+1:]...)
				close(ch)
				break
			}
		}
	}

	return ch, cancel, nil
}

// ErrPublishFull reports that a subscriber's channel was full and the task
// was not delivered to it. Tasks are not droppable by default, so the
// caller decides whether to retry, unlike the event channel's low-priority
// lane.
type ErrPublishFull struct {
	Topic string
}

func (e *ErrPublishFull) Error() string {
	return fmt.Sprintf("runtime: subscriber queue full for topic %q", e.Topic)
}

// Publish fans a task out to every current subscriber of topicName, in
// subscription order. It returns ErrTopicTypeMismatch if typeID disagrees
// with the topic's bound type, or the first ErrPublishFull encountered
// (after still attempting delivery to remaining subscribers).
func (t *topicTable) Publish(topicName, typeID string, task protocol.Task) error {
	t.mu.RLock()
	tp, ok := t.topics[topicName]
	if !ok {
		t.mu.RUnlock()
		return nil
	}
	if tp.typeID != typeID {
		t.mu.RUnlock()
		return &ErrTopicTypeMismatch{Topic: topicName, Want: tp.typeID, Got: typeID}
	}
	subs := make([]chan protocol.Task, len(tp.subscribers))
	copy(subs, tp.subscribers)
	t.mu.RUnlock()

	var firstErr error
	for _, ch := range subs {
		select {
		case ch <- task:
		default:
			if firstErr == nil {
				firstErr = &ErrPublishFull{Topic: topicName}
			}
		}
	}
	return firstErr
}

// SubscriberCount reports how many listeners a topic currently has, for
// tests and diagnostics.
func (t *topicTable) SubscriberCount(topicName string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tp, ok := t.topics[topicName]
	if !ok {
		return 0
	}
	return len(tp.subscribers)
}
