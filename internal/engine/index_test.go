package engine

import (
	"testing"

	"github.com/quadflow/quadflow/internal/role"
)

func TestIndex_BindOnce(t *testing.T) {
	idx := NewCorrelationIndex()
	idx.Bind("c1", role.Plan, "out-1")
	idx.Bind("c1", role.Build, "out-2") // silent no-op

	b, ok := idx.Resolve("c1")
	if !ok {
		t.Fatal("binding missing")
	}
	if b.Role != role.Plan || b.OutputID != "out-1" {
		t.Errorf("rebinding must not win: %+v", b)
	}
	if idx.Len() != 1 {
		t.Errorf("expected 1 binding, got %d", idx.Len())
	}
}

func TestIndex_ResolveUnknown(t *testing.T) {
	idx := NewCorrelationIndex()
	if _, ok := idx.Resolve("nope"); ok {
		t.Error("unknown correlation id should not resolve")
	}
}

func TestIndex_Reset(t *testing.T) {
	idx := NewCorrelationIndex()
	idx.Bind("c1", role.Plan, "out-1")
	idx.Bind("c2", role.Build, "out-2")
	idx.Reset()
	if idx.Len() != 0 {
		t.Errorf("reset should clear all bindings, got %d", idx.Len())
	}
	// Rebinding after reset is a fresh insert.
	idx.Bind("c1", role.Review, "out-3")
	if b, _ := idx.Resolve("c1"); b.Role != role.Review {
		t.Errorf("post-reset binding: %+v", b)
	}
}
