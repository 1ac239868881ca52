// Command poller runs the backend health poller as a standalone
// process: it loads backend/probe definitions, starts the poller
// core, serves the status/control HTTP API, and optionally forwards
// health transitions to a notifier.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hirsh012/varnish-cache/internal/config"
	"github.com/hirsh012/varnish-cache/internal/domain"
	"github.com/hirsh012/varnish-cache/internal/httpapi"
	"github.com/hirsh012/varnish-cache/internal/httpapi/middleware"
	"github.com/hirsh012/varnish-cache/internal/logging"
	"github.com/hirsh012/varnish-cache/internal/metrics"
	"github.com/hirsh012/varnish-cache/internal/notify"
	"github.com/hirsh012/varnish-cache/internal/poller"
	"github.com/hirsh012/varnish-cache/internal/repo"
	"github.com/hirsh012/varnish-cache/internal/repo/memory"
	"github.com/hirsh012/varnish-cache/internal/repo/postgres"
	"github.com/hirsh012/varnish-cache/internal/tcppool"
	"github.com/hirsh012/varnish-cache/internal/vclconfig"
	"github.com/hirsh012/varnish-cache/internal/workerpool"
)

var backendsFile string
var slackWebhook string
var statusAPIBase string
var statusDetails bool

func main() {
	root := &cobra.Command{
		Use:   "poller",
		Short: "Run the Varnish-style concurrent backend health poller",
		RunE:  run,
	}
	root.Flags().StringVar(&backendsFile, "backends", "", "path to a vclconfig YAML file of backend/probe definitions")
	root.Flags().StringVar(&slackWebhook, "slack-webhook", "", "Slack incoming webhook URL for DOWN/RECOVERED alerts (overrides SLACK_WEBHOOK)")

	status := &cobra.Command{
		Use:   "status [backend]",
		Short: "Print backend health the way varnishadm backend.list/backend.set_health would",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStatus,
	}
	status.Flags().StringVar(&statusAPIBase, "api", "http://127.0.0.1:8080", "base URL of a running poller's status/control API")
	status.Flags().BoolVar(&statusDetails, "details", false, "include the per-backend bitmap history table")
	root.AddCommand(status)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	names := args
	if len(names) == 0 {
		resp, err := client.Get(statusAPIBase + "/api/backends")
		if err != nil {
			return fmt.Errorf("listing backends: %w", err)
		}
		var cfgs []domain.BackendConfig
		err = json.NewDecoder(resp.Body).Decode(&cfgs)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding backend list: %w", err)
		}
		for _, c := range cfgs {
			names = append(names, c.DisplayName)
		}
	}

	for _, name := range names {
		url := statusAPIBase + "/api/backends/" + name + "/status"
		if statusDetails {
			url += "?details=true"
		}
		resp, err := client.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		fmt.Printf("%s:\n%s\n", name, body)
	}
	return nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()

	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("logging.NewLogger: %w", err)
	}
	defer logger.Sync()
	healthLog := logging.NewBackendHealthLogger(logger)

	registry, alertDB, closeRegistry, err := openRegistry(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeRegistry()

	sink := metrics.New(prometheus.DefaultRegisterer)

	tcp := tcppool.New()
	workers := workerpool.New(cfg.WorkerCount, cfg.QueueDepth)
	defer workers.Close()

	p := poller.New(tcp, workers, healthLog, sink, nil)
	defer p.Close()

	api := httpapi.NewServer(logger, p, registry)

	if backendsFile != "" {
		if err := loadBackends(cmd.Context(), backendsFile, p, registry, logger); err != nil {
			return fmt.Errorf("loading %s: %w", backendsFile, err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if webhook := firstNonEmpty(slackWebhook, os.Getenv("SLACK_WEBHOOK")); webhook != "" {
		alerter := notify.NewAlerter(api.ActiveBackends, alertDB, notify.NewSlack(webhook), notify.AlerterConfig{
			AlertOnRecovery: true,
			Cooldown:        cfg.CheckInterval * 6,
			PollInterval:    cfg.CheckInterval,
		})
		go func() {
			if err := alerter.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("alerter stopped", zap.Error(err))
			}
		}()
	}

	go serveMetrics(cfg.MetricsAddr, logger)

	keys := middleware.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.Router(keys, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("poller_listen", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http.ListenAndServe: %w", err)
	}
	return nil
}

func openRegistry(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.BackendRegistry, repo.AlertStore, func(), error) {
	if cfg.DatabaseURL == "" {
		store := memory.New()
		return store, store, func() {}, nil
	}
	store, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("postgres.New: %w", err)
	}
	return store, store, store.Close, nil
}

func loadBackends(ctx context.Context, path string, p *poller.Poller, registry repo.BackendRegistry, logger *zap.Logger) error {
	cfgs, err := vclconfig.Load(path)
	if err != nil {
		return err
	}
	for _, cfg := range cfgs {
		backend := domain.NewBackend(cfg.DisplayName, cfg.Address4, cfg.Address6)
		backend.ID = cfg.ID
		if _, err := p.Insert(backend, cfg.Probe, cfg.HostHeader); err != nil {
			logger.Error("insert backend failed", zap.String("backend", cfg.DisplayName), zap.Error(err))
			continue
		}
		if err := registry.Add(ctx, cfg); err != nil {
			logger.Error("registry add failed", zap.String("backend", cfg.DisplayName), zap.Error(err))
		}
	}
	return nil
}

func serveMetrics(addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics_listen", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
