// Package memory is an in-process repo.BackendRegistry and
// repo.AlertStore, used by tests and by single-process deployments
// that don't need the registry to survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hirsh012/varnish-cache/internal/domain"
	"github.com/hirsh012/varnish-cache/internal/repo"
)

type Store struct {
	mu       sync.RWMutex
	backends map[uuid.UUID]domain.BackendConfig
	alerts   map[uuid.UUID]repo.AlertRecord
}

func New() *Store {
	return &Store{
		backends: make(map[uuid.UUID]domain.BackendConfig),
		alerts:   make(map[uuid.UUID]repo.AlertRecord),
	}
}

// ---- BackendRegistry ----

func (m *Store) Add(ctx context.Context, cfg domain.BackendConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now().UTC()
	}
	m.backends[cfg.ID] = cfg
	return nil
}

func (m *Store) List(ctx context.Context) ([]domain.BackendConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.BackendConfig, 0, len(m.backends))
	for _, cfg := range m.backends {
		out = append(out, cfg)
	}
	return out, nil
}

func (m *Store) Get(ctx context.Context, id uuid.UUID) (*domain.BackendConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.backends[id]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (m *Store) Remove(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.backends, id)
	return nil
}

// ---- AlertStore ----

func (m *Store) GetAlert(ctx context.Context, backendID uuid.UUID) (*repo.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.alerts[backendID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Store) SetAlert(ctx context.Context, backendID uuid.UUID, lastHealthy bool, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := repo.AlertRecord{BackendID: backendID, LastHealthy: lastHealthy}
	if !sentAt.IsZero() {
		t := sentAt
		rec.LastSentAt = &t
	}
	m.alerts[backendID] = rec
	return nil
}
