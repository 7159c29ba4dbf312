package sessions

import (
	"testing"
	"time"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	s := NewStore(time.Hour)
	s.Put(&Entry{ID: "a", UpdatedAt: time.Now()})
	if s.Get("a") == nil {
		t.Fatal("expected entry a")
	}
	if !s.Delete("a") {
		t.Error("expected delete to report the entry")
	}
	if s.Delete("a") {
		t.Error("expected a second delete to miss")
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}

func TestStore_CleanupExpiresIdleEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(time.Minute)
	stale := &Entry{ID: "stale", UpdatedAt: now.Add(-2 * time.Minute)}
	fresh := &Entry{ID: "fresh", UpdatedAt: now.Add(-30 * time.Second)}
	s.Put(stale)
	s.Put(fresh)

	ids := s.Cleanup(now)
	if len(ids) != 1 || ids[0] != "stale" {
		t.Fatalf("expected [stale], got %v", ids)
	}
	if s.Get("fresh") == nil {
		t.Error("expected the fresh entry to survive")
	}
	if !stale.closed {
		t.Error("expected the expired entry to be closed")
	}
}

func TestNewID_SortableAndUnique(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	prev := ""
	for i := range 100 {
		id := newID(now.Add(time.Duration(i/10) * time.Millisecond))
		if len(id) != 26 {
			t.Fatalf("expected 26 characters, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
		if id[:10] < prev {
			t.Errorf("expected time prefixes to sort, got %q after %q", id[:10], prev)
		}
		prev = id[:10]
	}
}

func TestEncodeULID_KnownValue(t *testing.T) {
	var b [16]byte
	if got := encodeULID(b); got != "00000000000000000000000000" {
		t.Errorf("expected all zeros, got %q", got)
	}
	for i := range b {
		b[i] = 0xff
	}
	if got := encodeULID(b); got != "7ZZZZZZZZZZZZZZZZZZZZZZZZZ" {
		t.Errorf("expected the maximum ULID, got %q", got)
	}
}
