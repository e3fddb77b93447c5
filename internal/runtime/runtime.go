// Package runtime implements the actor-style asynchronous runtime: a
// topic-based publish/subscribe table actors use to exchange tasks, a
// bounded two-lane event channel for lifecycle and stream traffic, and a
// Created -> Running -> Draining -> Stopped lifecycle. Stop closes the event
// channel; Subscribe and Publish do not check the lifecycle state.
package runtime

import (
	"context"
	"sync"

	"github.com/agentcore/runtime/pkg/protocol"
)

// Config controls a Runtime's resource limits.
type Config struct {
	// EventChannelCapacity bounds the merged output channel. Zero selects
	// DefaultEventChannelCapacity.
	EventChannelCapacity int

	// TrackStats enables the in-process statsCollector tap on Emit. Leave
	// false when the OTel/Prometheus telemetry.Mapper path (internal/telemetry)
	// already covers the caller's observability needs; Stats() returns a
	// zero Stats value when disabled.
	TrackStats bool
}

// Runtime coordinates actors: each actor subscribes to the topics it cares
// about and publishes tasks and events through the shared table and bus.
type Runtime struct {
	stateMu sync.Mutex
	state   State

	topics *topicTable
	events *eventBus
	stats  *statsCollector

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Runtime in the Created state. Call Run to transition it
// to Running before any Subscribe/Publish traffic is expected to flow.
func New(cfg Config) *Runtime {
	r := &Runtime{
		state:  Created,
		topics: newTopicTable(),
		events: newEventBus(cfg.EventChannelCapacity),
		stopCh: make(chan struct{}),
	}
	if cfg.TrackStats {
		r.stats = newStatsCollector()
	}
	return r
}

// Run transitions the runtime from Created to Running. It is idempotent
// only in the sense that calling it twice returns ErrInvalidTransition the
// second time; callers should call it exactly once.
func (r *Runtime) Run(ctx context.Context) error {
	return r.transition(Running)
}

// Drain transitions Running -> Draining: new Subscribe/Publish calls still
// succeed, but Stop will wait for buffered events to flush before closing
// the event channel.
func (r *Runtime) Drain(ctx context.Context) error {
	return r.transition(Draining)
}

// Stop transitions to Stopped, closing the event bus after any buffered
// events have been flushed to its receiver. It is safe to call once.
func (r *Runtime) Stop(ctx context.Context) error {
	if err := r.transition(Stopped); err != nil {
		return err
	}
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.events.Close()
	})
	return nil
}

// Subscribe registers a listener on topicName bound to typeID and returns
// the channel it will receive protocol.Task values on, plus a cancel func
// to unsubscribe. It fails with ErrTopicTypeMismatch if the topic already
// exists under a different typeID.
func (r *Runtime) Subscribe(topicName, typeID string) (<-chan protocol.Task, func(), error) {
	return r.topics.Subscribe(topicName, typeID)
}

// Publish fans a task out to topicName's current subscribers. See
// topicTable.Publish for delivery and error semantics.
func (r *Runtime) Publish(topicName, typeID string, task protocol.Task) error {
	return r.topics.Publish(topicName, typeID, task)
}

// SubscriberCount reports how many actors currently subscribe to topicName.
func (r *Runtime) SubscriberCount(topicName string) int {
	return r.topics.SubscriberCount(topicName)
}

// Emit publishes a protocol event onto the runtime's internal event
// channel, subject to the two-lane back-pressure policy in eventBus. When
// Config.TrackStats was set, the event also feeds the in-process stats tap
// before being queued, so Stats() reflects it even if a downstream
// consumer is slow to drain the event channel.
func (r *Runtime) Emit(e protocol.Event) {
	if r.stats != nil {
		r.stats.consume(e)
	}
	r.events.Publish(e)
}

// Stats returns a snapshot of task/tool-call counters and mean durations
// derived from events this Runtime has forwarded. It is always available
// (no span tree, no exporter) as a lightweight alternative to wiring a
// telemetry.Mapper; it returns a zero Stats if Config.TrackStats was not
// set at construction.
func (r *Runtime) Stats() Stats {
	if r.stats == nil {
		return Stats{}
	}
	return r.stats.snapshot(r.events.Dropped())
}

// TakeEventReceiver returns the channel downstream consumers (a telemetry
// mapper, a cluster host fan-out, a log sink) read merged events from.
func (r *Runtime) TakeEventReceiver() <-chan protocol.Event {
	return r.events.Receiver()
}

// DroppedEvents reports how many droppable events have been discarded
// under back-pressure so far.
func (r *Runtime) DroppedEvents() int64 {
	return r.events.Dropped()
}
