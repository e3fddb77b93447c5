// Package cluster implements optional multi-process runtime federation: a
// Host owns the authoritative topic -> subscribed-client map and fans
// publishes out locally and to every client subscribed to a topic; a
// Client mirrors local subscriptions upstream and forwards local publishes
// it cannot satisfy itself.
package cluster

import "github.com/agentcore/runtime/pkg/protocol"

// MessageKind tags the two wire shapes a Host<->Client link exchanges:
// a forwarded Task and a SubscriptionRegistration. Both travel as a single
// tagged Message so one stream carries either.
type MessageKind string

const (
	KindTask                     MessageKind = "task"
	KindSubscriptionRegistration MessageKind = "subscription_registration"
)

// Message is the tagged envelope carried over a cluster link, in either the
// JSON encoding (direct use of this type) or as the payload of a gRPC
// bidirectional stream frame (encoded via the jsonCodec in codec.go). Exactly
// one of Task/Subscription is populated, selected by Kind.
type Message struct {
	Kind MessageKind `json:"kind"`

	Task                     *TaskMessage              `json:"task,omitempty"`
	SubscriptionRegistration *SubscriptionRegistration `json:"subscription_registration,omitempty"`
}

// TaskMessage is a Client's forwarded publish: a task it could not fully
// satisfy from its own local subscribers (or chose to also route upstream),
// tagged with enough routing information for the Host to re-fan-out.
type TaskMessage struct {
	Task          protocol.Task `json:"task"`
	SourceActorID string        `json:"source_actor_id"`
	TargetTopic   string        `json:"target_topic"`
	TopicTypeID   string        `json:"topic_type_id"`
}

// SubscriptionRegistration tells the Host that a Client has gained or lost
// interest in a topic. ClientID identifies the link; Subscribe is false for
// an unsubscribe.
type SubscriptionRegistration struct {
	ClientID  string `json:"client_id"`
	Topic     string `json:"topic"`
	TypeID    string `json:"type_id"`
	Subscribe bool   `json:"subscribe"`
}

func newTaskMessage(m TaskMessage) Message {
	return Message{Kind: KindTask, Task: &m}
}

func newSubscriptionMessage(m SubscriptionRegistration) Message {
	return Message{Kind: KindSubscriptionRegistration, SubscriptionRegistration: &m}
}
