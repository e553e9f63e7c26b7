package app

import (
	"reflect"
	"testing"
)

func TestRegistry_SnapshotOrder(t *testing.T) {
	r := NewRegistry()

	r.Bind("a", &fakeConn{}, nil)
	r.Bind("b", &fakeConn{}, nil)
	r.Bind("c", &fakeConn{}, nil)
	r.Join("a", "alice")
	r.Join("b", "bob")
	r.Join("c", "carol")

	got := r.Snapshot()
	want := []string{"alice", "bob", "carol"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}

	r.Remove("b")
	got = r.Snapshot()
	want = []string{"alice", "carol"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot() after remove = %v, want %v", got, want)
	}
}

func TestRegistry_JoinKeepsPosition(t *testing.T) {
	r := NewRegistry()
	r.Bind("a", &fakeConn{}, nil)
	r.Bind("b", &fakeConn{}, nil)
	r.Join("a", "alice")
	r.Join("b", "bob")

	// Renaming does not move the session to the back.
	r.Join("a", "alicia")
	got := r.Snapshot()
	want := []string{"alicia", "bob"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}
}

func TestRegistry_JoinUnknownSession(t *testing.T) {
	r := NewRegistry()
	if r.Join("ghost", "casper") {
		t.Error("Join for unbound session should return false")
	}
	if len(r.Snapshot()) != 0 {
		t.Errorf("Snapshot() = %v, want empty", r.Snapshot())
	}
}

func TestRegistry_RemoveIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Bind("a", &fakeConn{}, nil)
	r.Join("a", "alice")

	if !r.Remove("a") {
		t.Error("first Remove should report an existing entry")
	}
	if r.Remove("a") {
		t.Error("second Remove should be a no-op")
	}
	if len(r.Snapshot()) != 0 {
		t.Errorf("Snapshot() = %v, want empty", r.Snapshot())
	}
}

func TestRegistry_UnjoinedNotInSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Bind("a", &fakeConn{}, nil)
	if len(r.Snapshot()) != 0 {
		t.Errorf("Snapshot() = %v, want empty before join", r.Snapshot())
	}
	if _, ok := r.Conn("a"); !ok {
		t.Error("bound session should be addressable before join")
	}
}

func TestRegistry_RemoveCancelsContext(t *testing.T) {
	r := NewRegistry()
	canceled := false
	r.Bind("a", &fakeConn{}, func() { canceled = true })
	r.Remove("a")
	if !canceled {
		t.Error("Remove should cancel the session context")
	}
}
