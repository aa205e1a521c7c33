package scoreboard

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrMatchNotFound = errors.New("match not found")

// MatchStore owns the table of live matches. It hands out copies only;
// the engine is the single writer but the store stays safe on its own.
type MatchStore struct {
	mu      sync.Mutex
	matches map[string]*Match
}

func NewMatchStore() *MatchStore {
	return &MatchStore{matches: make(map[string]*Match)}
}

// Create allocates a fresh match id and stores the match. Ids are never
// reused.
func (s *MatchStore) Create(settings MatchSettings) Match {
	m := newMatch(uuid.NewString(), settings, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = m
	return m.clone()
}

func (s *MatchStore) Get(id string) (Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return Match{}, ErrMatchNotFound
	}
	return m.clone(), nil
}

// ApplyUpdate merges the partial update into the stored match and stamps
// LastUpdated. Updating an unknown id is an error, never an upsert.
func (s *MatchStore) ApplyUpdate(id string, upd MatchUpdate) (Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return Match{}, ErrMatchNotFound
	}
	m.apply(upd, time.Now())
	return m.clone(), nil
}

func (s *MatchStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[id]; !ok {
		return ErrMatchNotFound
	}
	delete(s.matches, id)
	return nil
}

// ExpiredBefore lists ids of matches created before the cutoff.
func (s *MatchStore) ExpiredBefore(cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, m := range s.matches {
		if m.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *MatchStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}
