package memory

import (
	"context"
	"testing"

	"github.com/agentcore/runtime/pkg/capability"
)

func TestInMemoryRecallRemember(t *testing.T) {
	ctx := context.Background()
	m := New()

	got, err := m.Recall(ctx)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(got))
	}

	msg := capability.Message{Role: capability.RoleUser, Type: capability.ContentText, Content: "hello"}
	if err := m.Remember(ctx, msg); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	got, err = m.Recall(ctx)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(got) != 1 || got[0] != msg {
		t.Fatalf("expected [%v], got %v", msg, got)
	}
}

func TestInMemoryRecallIsACopy(t *testing.T) {
	ctx := context.Background()
	m := New()
	_ = m.Remember(ctx, capability.Message{Role: capability.RoleUser, Content: "a"})

	got, _ := m.Recall(ctx)
	got[0].Content = "mutated"

	got2, _ := m.Recall(ctx)
	if got2[0].Content != "a" {
		t.Fatalf("Recall leaked internal slice: got %q", got2[0].Content)
	}
}

func TestNewWithHistorySeeds(t *testing.T) {
	seed := []capability.Message{{Role: capability.RoleSystem, Content: "sys"}}
	m := NewWithHistory(seed)

	got, _ := m.Recall(context.Background())
	if len(got) != 1 || got[0].Content != "sys" {
		t.Fatalf("expected seeded history, got %v", got)
	}

	seed[0].Content = "mutated after construction"
	got, _ = m.Recall(context.Background())
	if got[0].Content != "sys" {
		t.Fatalf("NewWithHistory aliased caller slice: got %q", got[0].Content)
	}
}

func TestExclusiveLockTryAcquireFailsWhileHeld(t *testing.T) {
	l := NewExclusiveLock()

	release, ok := l.TryAcquire()
	if !ok {
		t.Fatal("expected first TryAcquire to succeed")
	}

	if _, ok := l.TryAcquire(); ok {
		t.Fatal("expected second TryAcquire to fail while held")
	}

	release()

	release2, ok := l.TryAcquire()
	if !ok {
		t.Fatal("expected TryAcquire to succeed after release")
	}
	release2()
}

func TestExclusiveLockAcquireBlocksUntilReleased(t *testing.T) {
	l := NewExclusiveLock()
	release := l.Acquire()

	done := make(chan struct{})
	go func() {
		r := l.Acquire()
		r()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Acquire returned before the holder released")
	default:
	}

	release()
	<-done
}
