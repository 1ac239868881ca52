// Package repo defines the persistence ports the rest of the system
// depends on: a registry of configured backends (addresses, probe
// parameters) and an alert-cooldown store. Neither stores probe
// history — bitmaps and the RTT average live only in a running
// poller.Target and are rebuilt from a fresh Insert after a restart.
package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/hirsh012/varnish-cache/internal/domain"
)

// BackendRegistry is implemented by a persistence layer that durably
// stores the configured set of backends a vclconfig loader hands to
// the poller at startup. Swap in any DB adapter later.
type BackendRegistry interface {
	Add(ctx context.Context, cfg domain.BackendConfig) error
	List(ctx context.Context) ([]domain.BackendConfig, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.BackendConfig, error)
	Remove(ctx context.Context, id uuid.UUID) error
}
