package toolproc

import "testing"

func TestRegistryGetAndDescriptions(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool("alpha"))
	reg.Register(echoTool("beta"))

	if _, ok := reg.Get("alpha"); !ok {
		t.Fatal("expected alpha to be registered")
	}
	if _, ok := reg.Get("missing"); ok {
		t.Fatal("expected missing to be absent")
	}

	descs := reg.Descriptions()
	if len(descs) != 2 {
		t.Fatalf("expected 2 descriptions, got %d", len(descs))
	}
}

func TestErrToolNotFoundMessage(t *testing.T) {
	err := &ErrToolNotFound{Name: "ghost"}
	if got := err.Error(); got == "" {
		t.Fatal("expected non-empty error message")
	}
}
