package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hirsh012/varnish-cache/internal/domain"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS backends (
  id           UUID PRIMARY KEY,
  display_name TEXT NOT NULL,
  address4     TEXT NOT NULL DEFAULT '',
  address6     TEXT NOT NULL DEFAULT '',
  host_header  TEXT NOT NULL DEFAULT '',
  probe_spec   JSONB NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS alerts (
  backend_id   UUID PRIMARY KEY REFERENCES backends(id) ON DELETE CASCADE,
  last_healthy BOOLEAN NOT NULL,
  last_sent_at TIMESTAMPTZ NULL
);
`

func ensureSchema(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
}

func TestPostgresStore_BackendRegistryAndAlerts(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	ensureSchema(t, dsn)

	ctx := context.Background()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	defer store.Close()

	cfg := domain.BackendConfig{
		DisplayName: fmt.Sprintf("origin-%d", time.Now().UTC().UnixNano()),
		Address4:    "10.0.0.1:80",
		Probe:       domain.ProbeSpec{URL: "/healthz"}.WithDefaults(),
	}
	if err := store.Add(ctx, cfg); err != nil {
		t.Fatalf("Add: %v", err)
	}
	// Add takes cfg by value, so the assigned ID is read back via List.
	added, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, c := range added {
		if c.DisplayName == cfg.DisplayName {
			cfg.ID = c.ID
		}
	}
	if cfg.ID == uuid.Nil {
		t.Fatal("expected Add to assign an ID")
	}

	got, err := store.Get(ctx, cfg.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.DisplayName != cfg.DisplayName {
		t.Fatalf("Get returned %+v, want matching %+v", got, cfg)
	}
	if got.Probe.URL != "/healthz" {
		t.Fatalf("probe spec not round-tripped: %+v", got.Probe)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, c := range list {
		if c.ID == cfg.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("added backend not found in List")
	}

	if rec, err := store.GetAlert(ctx, cfg.ID); err != nil || rec != nil {
		t.Fatalf("expected no alert record yet, got %+v err=%v", rec, err)
	}
	if err := store.SetAlert(ctx, cfg.ID, false, time.Time{}); err != nil {
		t.Fatalf("SetAlert: %v", err)
	}
	rec, err := store.GetAlert(ctx, cfg.ID)
	if err != nil || rec == nil || rec.LastSentAt != nil || rec.LastHealthy {
		t.Fatalf("unexpected alert record: %+v err=%v", rec, err)
	}

	now := time.Now().UTC()
	if err := store.SetAlert(ctx, cfg.ID, true, now); err != nil {
		t.Fatalf("SetAlert: %v", err)
	}
	rec, err = store.GetAlert(ctx, cfg.ID)
	if err != nil || rec == nil || rec.LastSentAt == nil || !rec.LastHealthy {
		t.Fatalf("unexpected alert record after update: %+v err=%v", rec, err)
	}

	if err := store.Remove(ctx, cfg.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got, err := store.Get(ctx, cfg.ID); err != nil || got != nil {
		t.Fatalf("expected backend gone after Remove, got %+v err=%v", got, err)
	}
}
