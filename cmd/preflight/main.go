// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	admin := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	pub := strings.TrimSpace(os.Getenv("PUBLIC_API_KEYS"))
	addr := strings.TrimSpace(os.Getenv("ADDR"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	metricsAddr := strings.TrimSpace(os.Getenv("METRICS_ADDR"))
	slack := strings.TrimSpace(os.Getenv("SLACK_WEBHOOK"))

	if admin == "" {
		fail("ADMIN_API_KEYS is empty (admin routes will accept requests without any key).")
	}
	if pub == "" {
		fail("PUBLIC_API_KEYS is empty (public routes will 401).")
	}

	for name, v := range map[string]string{"ADMIN_API_KEYS": admin, "PUBLIC_API_KEYS": pub} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	if addr == "" {
		warn("ADDR is empty; the poller's default bind address will be used.")
	} else {
		ok("ADDR=" + addr)
	}

	if db == "" {
		warn("DATABASE_URL empty — the backend registry will use the in-memory store and will not survive a restart.")
	} else {
		ok("DATABASE_URL present")
	}

	if metricsAddr == "" {
		warn("METRICS_ADDR empty — Prometheus scraping will use the poller's built-in default.")
	} else {
		ok("METRICS_ADDR=" + metricsAddr)
	}

	if slack == "" {
		warn("SLACK_WEBHOOK empty — DOWN/RECOVERED alerts will not be sent anywhere.")
	} else {
		ok("SLACK_WEBHOOK present")
	}

	ok("preflight passed")
}
