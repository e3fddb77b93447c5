package cluster

import (
	"context"
	"sync"

	"github.com/agentcore/runtime/pkg/protocol"
)

// LocalPublisher is the slice of *runtime.Runtime a Host needs: fanning a
// task out to this process's local subscribers of a topic.
type LocalPublisher interface {
	Publish(topicName, typeID string, task protocol.Task) error
}

// Host owns the authoritative topic -> subscribed-client map for a cluster.
// On a Task forwarded up by one client it publishes locally and re-fans to
// every other subscribed client. Host has no publish method of its own: a
// publish that starts in the host process is not sent to any client.
type Host struct {
	local    LocalPublisher
	listener Listener

	mu          sync.RWMutex
	clientsByID map[string]Link
	subsByTopic map[string]map[string]struct{}
}

// NewHost wires a Host to the Runtime it fans local publishes through and
// the Listener it accepts client links on.
func NewHost(local LocalPublisher, listener Listener) *Host {
	return &Host{
		local:       local,
		listener:    listener,
		clientsByID: make(map[string]Link),
		subsByTopic: make(map[string]map[string]struct{}),
	}
}

// Serve accepts client links until Accept returns an error (ctx cancelled
// or the listener closed), handling each on its own goroutine.
func (h *Host) Serve(ctx context.Context) error {
	for {
		link, err := h.listener.Accept(ctx)
		if err != nil {
			return err
		}
		go h.handleClient(link)
	}
}

func (h *Host) handleClient(link Link) {
	defer link.Close()

	var clientID string
	defer func() {
		if clientID != "" {
			h.removeClient(clientID)
		}
	}()

	for {
		msg, err := link.Recv()
		if err != nil {
			return
		}

		switch msg.Kind {
		case KindSubscriptionRegistration:
			reg := msg.SubscriptionRegistration
			if reg == nil {
				continue
			}
			clientID = reg.ClientID
			h.registerClient(clientID, link)
			h.applySubscription(*reg)
		case KindTask:
			tm := msg.Task
			if tm == nil {
				continue
			}
			_ = h.local.Publish(tm.TargetTopic, tm.TopicTypeID, tm.Task)
			h.fanOutToClients(tm, clientID)
		}
	}
}

func (h *Host) registerClient(id string, link Link) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clientsByID[id] = link
}

func (h *Host) removeClient(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clientsByID, id)
	for topic, set := range h.subsByTopic {
		delete(set, id)
		if len(set) == 0 {
			delete(h.subsByTopic, topic)
		}
	}
}

func (h *Host) applySubscription(reg SubscriptionRegistration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subsByTopic[reg.Topic]
	if !ok {
		set = make(map[string]struct{})
		h.subsByTopic[reg.Topic] = set
	}
	if reg.Subscribe {
		set[reg.ClientID] = struct{}{}
	} else {
		delete(set, reg.ClientID)
	}
}

// fanOutToClients forwards a task received from one client to every other
// client currently subscribed to its target topic; the source client
// already applied the task to its own local subscribers before forwarding.
func (h *Host) fanOutToClients(tm *TaskMessage, fromClientID string) {
	h.mu.RLock()
	set := h.subsByTopic[tm.TargetTopic]
	targets := make([]Link, 0, len(set))
	for id := range set {
		if id == fromClientID {
			continue
		}
		if link, ok := h.clientsByID[id]; ok {
			targets = append(targets, link)
		}
	}
	h.mu.RUnlock()

	for _, link := range targets {
		_ = link.Send(newTaskMessage(*tm))
	}
}

// SubscribedClientCount reports how many clients currently subscribe to
// topic, for tests and diagnostics.
func (h *Host) SubscribedClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subsByTopic[topic])
}
