package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentcore/runtime/pkg/protocol"
)

// LocalRuntime is the slice of *runtime.Runtime a Client needs: applying a
// task the Host forwarded back down to this process's local subscribers.
type LocalRuntime interface {
	Publish(topicName, typeID string, task protocol.Task) error
}

// Client maintains local subscriptions and an upstream Link to a Host,
// forwarding local publishes the Host should re-fan to other clients and
// applying tasks the Host forwards back down.
type Client struct {
	id      string
	local   LocalRuntime
	dialer  Dialer
	backoff func(attempt int) time.Duration

	mu   sync.Mutex
	link Link
	subs map[string]string // topic -> type id, replayed on every connect
}

// NewClient constructs a disconnected Client. Call Connect to establish the
// upstream link.
func NewClient(id string, local LocalRuntime, dialer Dialer) *Client {
	return &Client{
		id:      id,
		local:   local,
		dialer:  dialer,
		subs:    make(map[string]string),
		backoff: defaultBackoff,
	}
}

func defaultBackoff(attempt int) time.Duration {
	d := time.Duration(attempt) * 200 * time.Millisecond
	if d <= 0 {
		return 200 * time.Millisecond
	}
	if d > 5*time.Second {
		return 5 * time.Second
	}
	return d
}

// Connect dials the Host, replays every subscription registered so far, and
// starts a receive loop on a new goroutine. It retries with backoff on a
// failed dial until ctx is cancelled, per the "small retry/backoff on
// missing host forwarder presence" requirement.
func (c *Client) Connect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		link, err := c.dialer.Dial(ctx)
		if err == nil {
			c.mu.Lock()
			c.link = link
			subsCopy := make(map[string]string, len(c.subs))
			for topic, typeID := range c.subs {
				subsCopy[topic] = typeID
			}
			c.mu.Unlock()

			for topic, typeID := range subsCopy {
				_ = link.Send(newSubscriptionMessage(SubscriptionRegistration{
					ClientID: c.id, Topic: topic, TypeID: typeID, Subscribe: true,
				}))
			}
			go c.recvLoop(link)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
	}
}

func (c *Client) recvLoop(link Link) {
	for {
		msg, err := link.Recv()
		if err != nil {
			return
		}
		if msg.Kind == KindTask && msg.Task != nil {
			tm := msg.Task
			_ = c.local.Publish(tm.TargetTopic, tm.TopicTypeID, tm.Task)
		}
	}
}

// Subscribe records local interest in topic and, if this client has not
// already registered it with the Host, sends a SubscriptionRegistration.
func (c *Client) Subscribe(topic, typeID string) error {
	c.mu.Lock()
	_, existed := c.subs[topic]
	c.subs[topic] = typeID
	link := c.link
	c.mu.Unlock()

	if existed || link == nil {
		return nil
	}
	return link.Send(newSubscriptionMessage(SubscriptionRegistration{
		ClientID: c.id, Topic: topic, TypeID: typeID, Subscribe: true,
	}))
}

// Unsubscribe drops local interest in topic and tells the Host.
func (c *Client) Unsubscribe(topic string) error {
	c.mu.Lock()
	delete(c.subs, topic)
	link := c.link
	c.mu.Unlock()

	if link == nil {
		return nil
	}
	return link.Send(newSubscriptionMessage(SubscriptionRegistration{
		ClientID: c.id, Topic: topic, Subscribe: false,
	}))
}

// Forward sends a locally-published task upstream as a cluster Task
// message, so the Host can re-fan it to any other client subscribed to
// topic.
func (c *Client) Forward(sourceActorID, topic, typeID string, task protocol.Task) error {
	c.mu.Lock()
	link := c.link
	c.mu.Unlock()
	if link == nil {
		return fmt.Errorf("cluster: client %s has no active link", c.id)
	}
	return link.Send(newTaskMessage(TaskMessage{
		Task: task, SourceActorID: sourceActorID, TargetTopic: topic, TopicTypeID: typeID,
	}))
}

// Close tears down the upstream link, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	link := c.link
	c.link = nil
	c.mu.Unlock()
	if link == nil {
		return nil
	}
	return link.Close()
}
