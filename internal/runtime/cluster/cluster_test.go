package cluster

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agentcore/runtime/pkg/protocol"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []protocol.Task
}

func (f *fakePublisher) Publish(topicName, typeID string, task protocol.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, task)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestClientSubscribeReplaysOnConnect(t *testing.T) {
	hostLocal := &fakePublisher{}
	pt := NewPipeTransport()
	host := NewHost(hostLocal, pt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go host.Serve(ctx)

	clientLocal := &fakePublisher{}
	client := NewClient("client-a", clientLocal, pt.Dialer())

	if err := client.Subscribe("topic.orders", "Order"); err != nil {
		t.Fatalf("Subscribe before connect: %v", err)
	}
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return host.SubscribedClientCount("topic.orders") == 1
	})
}

func TestHostFansPublishedTaskToOtherClients(t *testing.T) {
	hostLocal := &fakePublisher{}
	pt := NewPipeTransport()
	host := NewHost(hostLocal, pt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go host.Serve(ctx)

	aLocal := &fakePublisher{}
	a := NewClient("client-a", aLocal, pt.Dialer())
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("a.Connect: %v", err)
	}
	if err := a.Subscribe("topic.orders", "Order"); err != nil {
		t.Fatalf("a.Subscribe: %v", err)
	}

	bLocal := &fakePublisher{}
	b := NewClient("client-b", bLocal, pt.Dialer())
	if err := b.Connect(ctx); err != nil {
		t.Fatalf("b.Connect: %v", err)
	}
	if err := b.Subscribe("topic.orders", "Order"); err != nil {
		t.Fatalf("b.Subscribe: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return host.SubscribedClientCount("topic.orders") == 2
	})

	task := protocol.NewTask("ship order 42", nil)
	if err := a.Forward("actor-a", "topic.orders", "Order", task); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	waitFor(t, time.Second, func() bool { return hostLocal.count() == 1 })
	waitFor(t, time.Second, func() bool { return bLocal.count() == 1 })
	if aLocal.count() != 0 {
		t.Errorf("originating client should not receive its own forwarded task back, got %d", aLocal.count())
	}
}

func TestMintTokenAndStreamAuthRoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := MintToken(secret, "client-a")
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}
	if token == "" {
		t.Fatal("MintToken returned empty token")
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
	handled := false
	err = jwtStreamAuth(secret)(nil, authTestStream{ctx: ctx}, &grpc.StreamServerInfo{}, func(any, grpc.ServerStream) error {
		handled = true
		return nil
	})
	if err != nil {
		t.Fatalf("stream auth rejected a token minted with the same secret: %v", err)
	}
	if !handled {
		t.Fatal("stream auth did not call the handler")
	}
}

// authTestStream supplies only the context jwtStreamAuth reads.
type authTestStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s authTestStream) Context() context.Context { return s.ctx }
