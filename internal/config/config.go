// Package config loads process-wide settings — bind addresses, log
// directory, API auth keys, rate limits, and the worker pool sizing —
// via viper, which layers environment variables over built-in
// defaults. Per-backend probe definitions are not part of this
// config; see internal/vclconfig for those.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr   string // HTTP status/control API bind address
	LogDir string

	DatabaseURL string // empty means use the in-memory registry/alert store

	PublicAPIKeys []string
	AdminAPIKeys  []string

	HTTPTimeout time.Duration

	RetryAttempts int
	RetryBackoff  time.Duration

	CheckInterval       time.Duration
	MaxConcurrentChecks int

	PublicRPM   int
	PublicBurst int
	AdminRPM    int
	AdminBurst  int

	// WorkerCount and QueueDepth size the poller's worker pool
	// (internal/workerpool.New).
	WorkerCount int
	QueueDepth  int

	MetricsAddr string
}

func FromEnv() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("database_url", "")
	v.SetDefault("public_api_keys", "")
	v.SetDefault("admin_api_keys", "")
	v.SetDefault("http_timeout_ms", 2000)
	v.SetDefault("retry_attempts", 2)
	v.SetDefault("retry_backoff_ms", 300)
	v.SetDefault("check_interval_ms", 5000)
	v.SetDefault("max_concurrent_checks", 16)
	v.SetDefault("public_rpm", 0)
	v.SetDefault("public_burst", 0)
	v.SetDefault("admin_rpm", 0)
	v.SetDefault("admin_burst", 0)
	v.SetDefault("worker_count", 8)
	v.SetDefault("queue_depth", 64)
	v.SetDefault("metrics_addr", ":9090")

	return Config{
		Addr:        v.GetString("addr"),
		LogDir:      v.GetString("log_dir"),
		DatabaseURL: v.GetString("database_url"),

		PublicAPIKeys: splitCSV(v.GetString("public_api_keys")),
		AdminAPIKeys:  splitCSV(v.GetString("admin_api_keys")),

		HTTPTimeout: time.Duration(v.GetInt("http_timeout_ms")) * time.Millisecond,

		RetryAttempts: v.GetInt("retry_attempts"),
		RetryBackoff:  time.Duration(v.GetInt("retry_backoff_ms")) * time.Millisecond,

		CheckInterval:       time.Duration(v.GetInt("check_interval_ms")) * time.Millisecond,
		MaxConcurrentChecks: v.GetInt("max_concurrent_checks"),

		PublicRPM:   v.GetInt("public_rpm"),
		PublicBurst: v.GetInt("public_burst"),
		AdminRPM:    v.GetInt("admin_rpm"),
		AdminBurst:  v.GetInt("admin_burst"),

		WorkerCount: v.GetInt("worker_count"),
		QueueDepth:  v.GetInt("queue_depth"),

		MetricsAddr: v.GetString("metrics_addr"),
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
