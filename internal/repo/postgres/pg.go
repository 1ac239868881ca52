// Package postgres is a pgx/v5-backed repo.BackendRegistry and
// repo.AlertStore, for deployments that want the configured backend
// set (and alert cooldown state) to survive a restart. Probe history
// — bitmaps, the RTT average — is never persisted here; only
// configuration and cooldown bookkeeping are.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hirsh012/varnish-cache/internal/domain"
	"github.com/hirsh012/varnish-cache/internal/repo"
)

var _ repo.BackendRegistry = (*Store)(nil)
var _ repo.AlertStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ---- BackendRegistry ----

func (s *Store) Add(ctx context.Context, cfg domain.BackendConfig) error {
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now().UTC()
	}
	probeJSON, err := json.Marshal(cfg.Probe)
	if err != nil {
		return fmt.Errorf("marshal probe spec: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO backends (id, display_name, address4, address6, host_header, probe_spec, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   display_name = EXCLUDED.display_name,
		   address4     = EXCLUDED.address4,
		   address6     = EXCLUDED.address6,
		   host_header  = EXCLUDED.host_header,
		   probe_spec   = EXCLUDED.probe_spec`,
		cfg.ID, cfg.DisplayName, cfg.Address4, cfg.Address6, cfg.HostHeader, probeJSON, cfg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert backend: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.BackendConfig, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, display_name, address4, address6, host_header, probe_spec, created_at
		   FROM backends
		  ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list backends: %w", err)
	}
	defer rows.Close()

	var out []domain.BackendConfig
	for rows.Next() {
		cfg, err := scanBackendConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.BackendConfig, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, display_name, address4, address6, host_header, probe_spec, created_at
		   FROM backends WHERE id = $1`, id)
	cfg, err := scanBackendConfig(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) Remove(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM backends WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("remove backend: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBackendConfig(r rowScanner) (domain.BackendConfig, error) {
	var (
		cfg       domain.BackendConfig
		probeJSON []byte
	)
	if err := r.Scan(&cfg.ID, &cfg.DisplayName, &cfg.Address4, &cfg.Address6, &cfg.HostHeader, &probeJSON, &cfg.CreatedAt); err != nil {
		return domain.BackendConfig{}, err
	}
	if err := json.Unmarshal(probeJSON, &cfg.Probe); err != nil {
		return domain.BackendConfig{}, fmt.Errorf("unmarshal probe spec: %w", err)
	}
	return cfg, nil
}

// ---- AlertStore ----

func (s *Store) GetAlert(ctx context.Context, backendID uuid.UUID) (*repo.AlertRecord, error) {
	const q = `SELECT last_healthy, last_sent_at FROM alerts WHERE backend_id = $1`
	var rec repo.AlertRecord
	rec.BackendID = backendID
	var lastSent *time.Time
	err := s.pool.QueryRow(ctx, q, backendID).Scan(&rec.LastHealthy, &lastSent)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rec.LastSentAt = lastSent
	return &rec, nil
}

func (s *Store) SetAlert(ctx context.Context, backendID uuid.UUID, lastHealthy bool, sentAt time.Time) error {
	const q = `
		INSERT INTO alerts (backend_id, last_healthy, last_sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (backend_id)
		DO UPDATE SET last_healthy = EXCLUDED.last_healthy, last_sent_at = EXCLUDED.last_sent_at
	`
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	_, err := s.pool.Exec(ctx, q, backendID, lastHealthy, ts)
	return err
}
