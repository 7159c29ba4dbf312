package sessions

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/folio/internal/bridge"
	"github.com/dgallion1/folio/internal/reader"
)

// Entry is one open reader session. mu serializes every call into the
// reader, which is single-threaded.
type Entry struct {
	mu sync.Mutex

	ID          string
	Filename    string
	Title       string
	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	reader *reader.Session
	rec    *bridge.Recorder
	seq    uint64
	closed bool
}

// Snapshot is a read-only, JSON-safe copy of a session.
type Snapshot struct {
	ID          string       `json:"session_id"`
	Filename    string       `json:"filename"`
	Title       string       `json:"title"`
	ContentHash string       `json:"content_hash"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	State       reader.State `json:"state"`
}

func (e *Entry) snapshotLocked() Snapshot {
	return Snapshot{
		ID:          e.ID,
		Filename:    e.Filename,
		Title:       e.Title,
		ContentHash: e.ContentHash,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		State:       e.reader.State(),
	}
}

// Snapshot returns the current session state.
func (e *Entry) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Entry) lastUsed() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.UpdatedAt
}

// Store is a thread-safe in-memory session registry with TTL eviction.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]*Entry),
		ttl:     ttl,
	}
}

func (s *Store) Put(e *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = e
}

func (s *Store) Get(id string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[id]
}

// Delete removes a session and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if ok {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
	}
	return ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup removes sessions idle for longer than the TTL and returns their ids.
func (s *Store) Cleanup(now time.Time) []string {
	s.mu.Lock()
	var expired []string
	for id, e := range s.entries {
		if now.Sub(e.lastUsed()) > s.ttl {
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()
	for _, id := range expired {
		s.Delete(id)
	}
	return expired
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
