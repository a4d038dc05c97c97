// Package favorites keeps the user's bookmarked titles as a durable set of
// AniList media ids.
package favorites

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/animekun-backend/internal/infra/store"
	"github.com/edumarques81/animekun-backend/internal/metrics"
)

// StorageKey is the durable KV key holding the serialized id list.
const StorageKey = "animekun_favorites"

// Listener is notified with the current id list after every change.
type Listener func(ids []int)

// Store is a persisted, de-duplicated set of favorite media ids.
// Membership tests are map lookups; IDs keeps insertion order.
type Store struct {
	mu        sync.RWMutex
	kv        store.KV
	ids       []int
	index     map[int]struct{}
	listeners []Listener
}

// New creates an empty store backed by kv. Call Load to read persisted data.
func New(kv store.KV) *Store {
	return &Store{
		kv:    kv,
		index: make(map[int]struct{}),
	}
}

// Load replaces the in-memory set with the persisted one. Missing,
// malformed or legacy-shaped data leaves the store empty; errors are
// logged, never returned.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = nil
	s.index = make(map[int]struct{})
	defer func() { metrics.FavoritesCount.Set(float64(len(s.ids))) }()

	data, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read favorites, starting empty")
		return
	}
	if !ok {
		return
	}

	var stored []int
	if err := json.Unmarshal(data, &stored); err != nil {
		log.Warn().Err(err).Msg("Discarding unreadable favorites data")
		return
	}

	for _, id := range stored {
		if _, dup := s.index[id]; dup {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	log.Info().Int("count", len(s.ids)).Msg("Favorites loaded")
}

// Toggle removes id when present and adds it otherwise. It returns the new
// membership of id.
func (s *Store) Toggle(id int) bool {
	s.mu.Lock()
	_, present := s.index[id]
	if present {
		delete(s.index, id)
		for i, v := range s.ids {
			if v == id {
				s.ids = append(s.ids[:i], s.ids[i+1:]...)
				break
			}
		}
	} else {
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	snapshot := s.snapshotLocked()
	s.persistLocked()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	metrics.FavoritesCount.Set(float64(len(snapshot)))
	log.Debug().Int("id", id).Bool("favorite", !present).Msg("Favorite toggled")

	for _, fn := range listeners {
		fn(snapshot)
	}
	return !present
}

// IsFavorite reports whether id is in the set.
func (s *Store) IsFavorite(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// IDs returns a copy of the ids in insertion order.
func (s *Store) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the number of favorites.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Subscribe registers fn to run after every toggle.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) snapshotLocked() []int {
	out := make([]int, len(s.ids))
	copy(out, s.ids)
	return out
}

// persistLocked writes the whole set. A failed write keeps the in-memory
// state authoritative for the rest of the process.
func (s *Store) persistLocked() {
	data, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode favorites")
		return
	}
	if err := s.kv.Set(StorageKey, data); err != nil {
		log.Error().Err(err).Msg("Failed to persist favorites")
	}
}
