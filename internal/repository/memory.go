package repository

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// MemoryStore keeps analysis state in process. Entries expire ttl after
// their last update; expired entries are dropped on access.
type MemoryStore struct {
	mu     sync.Mutex
	items  map[string]entity.AnalysisState
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewMemoryStore(ttl time.Duration, logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		items:  make(map[string]entity.AnalysisState),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

func (m *MemoryStore) expired(s entity.AnalysisState) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}

func (m *MemoryStore) Create(_ context.Context, id string) (entity.AnalysisState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.items[id]; ok && !m.expired(cur) {
		return entity.AnalysisState{}, alreadyExists(id)
	}
	s := newState(id, m.now().UTC())
	m.items[id] = s
	return s, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (entity.AnalysisState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return entity.AnalysisState{}, notFound(id)
	}
	if m.expired(s) {
		delete(m.items, id)
		return entity.AnalysisState{}, notFound(id)
	}
	return s, nil
}

func (m *MemoryStore) Advance(_ context.Context, id string, u Update) (entity.AnalysisState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[id]
	if !ok || m.expired(cur) {
		return entity.AnalysisState{}, notFound(id)
	}
	next, err := apply(cur, u, m.now().UTC())
	if err != nil {
		m.logger.Debug("analysis.transition.rejected", "analysis_id", id, "from", cur.Status, "to", u.Status)
		return cur, err
	}
	m.items[id] = next
	return next, nil
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
