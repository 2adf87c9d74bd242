// Package sessionstore persists per-connection secchan session statistics in
// an embedded pebble key-value store, so an operator-facing admin surface
// can report handshake and transfer activity across process restarts.
package sessionstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog/log"
)

// Stat is one session's recorded activity. ID is the caller-assigned
// identifier for the underlying secchan.Endpoint (e.g. a remote address or
// a generated session token).
type Stat struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	BytesIn     int64     `json:"bytes_in"`
	BytesOut    int64     `json:"bytes_out"`
	ChunksIn    int64     `json:"chunks_in"`
	ChunksOut   int64     `json:"chunks_out"`
	HandshakeAt time.Time `json:"handshake_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// Store wraps a pebble database mapping session ID to its Stat, JSON-encoded.
type Store struct {
	db *pebble.DB
	mu sync.Mutex
}

// Open creates or reopens a pebble store at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("sessionstore: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the underlying pebble database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put upserts a session's stats.
func (s *Store) Put(stat Stat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(stat)
	if err != nil {
		return fmt.Errorf("sessionstore: marshal stat %s: %w", stat.ID, err)
	}
	if err := s.db.Set([]byte(stat.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("sessionstore: put %s: %w", stat.ID, err)
	}
	return nil
}

// Get looks up one session by ID.
func (s *Store) Get(id string) (Stat, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, closer, err := s.db.Get([]byte(id))
	if err == pebble.ErrNotFound {
		return Stat{}, false, nil
	}
	if err != nil {
		return Stat{}, false, fmt.Errorf("sessionstore: get %s: %w", id, err)
	}
	defer closer.Close()

	var stat Stat
	if err := json.Unmarshal(value, &stat); err != nil {
		return Stat{}, false, fmt.Errorf("sessionstore: unmarshal %s: %w", id, err)
	}
	return stat, true, nil
}

// List returns every stored session, sorted by ID for stable output.
func (s *Store) List() ([]Stat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	iter, err := s.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: iterate: %w", err)
	}
	defer iter.Close()

	var stats []Stat
	for iter.First(); iter.Valid(); iter.Next() {
		var stat Stat
		if err := json.Unmarshal(iter.Value(), &stat); err != nil {
			return nil, fmt.Errorf("sessionstore: unmarshal entry: %w", err)
		}
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ID < stats[j].ID })
	return stats, nil
}

// Hook records secchan.Endpoint activity into a Store under a fixed session
// ID. It is attached to an Endpoint's call sites by the owning application
// (secchan itself has no knowledge of sessionstore).
type Hook struct {
	store *Store
	id    string
	role  string

	mu   sync.Mutex
	stat Stat
}

// NewHook creates a Hook that records activity for the given session ID.
func NewHook(store *Store, id, role string) *Hook {
	return &Hook{store: store, id: id, role: role, stat: Stat{ID: id, Role: role}}
}

// OnHandshake records that the handshake completed at the current time.
func (h *Hook) OnHandshake() {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	h.stat.HandshakeAt = now
	h.stat.LastSeenAt = now
	h.flushLocked()
}

// OnRead records an inbound datagram or chunk of n bytes.
func (h *Hook) OnRead(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stat.BytesIn += int64(n)
	h.stat.ChunksIn++
	h.stat.LastSeenAt = time.Now()
	h.flushLocked()
}

// OnWrite records an outbound datagram or chunk of n bytes.
func (h *Hook) OnWrite(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stat.BytesOut += int64(n)
	h.stat.ChunksOut++
	h.stat.LastSeenAt = time.Now()
	h.flushLocked()
}

func (h *Hook) flushLocked() {
	if err := h.store.Put(h.stat); err != nil {
		log.Error().Err(err).Str("session_id", h.id).Msg("[SessionStore] Failed to persist session stats")
	}
}
