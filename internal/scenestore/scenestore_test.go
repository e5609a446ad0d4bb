package scenestore

import (
	"context"
	"testing"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	s := NewStore()
	a := s.GetOrCreate("sA")
	b := s.GetOrCreate("sA")
	if a != b {
		t.Fatal("expected GetOrCreate to return the same descriptor for the same ID")
	}
	if a.State() != Unloaded {
		t.Errorf("expected initial state UNLOADED, got %s", a.State())
	}
}

func TestSnapshotPreservesInsertionOrder(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("sA")
	s.GetOrCreate("sB")
	s.GetOrCreate("sC")

	snap := s.Snapshot()
	ids := []string{snap[0].SceneID, snap[1].SceneID, snap[2].SceneID}
	want := []string{"sA", "sB", "sC"}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("index %d: got %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestReorderMovesToFront(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("sA")
	s.GetOrCreate("sB")
	s.GetOrCreate("sC")

	s.Reorder("sC", true)

	snap := s.Snapshot()
	if snap[0].SceneID != "sC" {
		t.Errorf("expected sC first after reorder, got %s", snap[0].SceneID)
	}
	if len(snap) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(snap))
	}
}

func TestWeakRefExpiresAfterReset(t *testing.T) {
	d := &SceneDescriptor{SceneID: "sA"}
	ref := d.WeakRef()

	if _, ok := ref.Get(); !ok {
		t.Fatal("expected fresh ref to resolve")
	}

	d.Mu.Lock()
	d.Reset()
	d.Mu.Unlock()

	if _, ok := ref.Get(); ok {
		t.Error("expected ref to expire after Reset")
	}

	fresh := d.WeakRef()
	if _, ok := fresh.Get(); !ok {
		t.Error("expected a ref taken after Reset to resolve")
	}
}

func TestArmCancelAndCancel(t *testing.T) {
	d := &SceneDescriptor{SceneID: "sA"}
	ctx := d.ArmCancel(context.Background())

	select {
	case <-ctx.Done():
		t.Fatal("context should not be cancelled yet")
	default:
	}

	d.Cancel()

	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected context to be cancelled")
	}
}

func TestGetUnregisteredReturnsNil(t *testing.T) {
	s := NewStore()
	if d := s.Get("missing"); d != nil {
		t.Errorf("expected nil for unregistered scene, got %+v", d)
	}
}
