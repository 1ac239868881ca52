// Package vclconfig loads the set of backends and their probe
// parameters from a YAML file, the stand-in for a VCL compiler
// producing `.probe` and `.backend` declarations. Each entry becomes a
// domain.BackendConfig the caller hands to repo.BackendRegistry and
// poller.Insert.
package vclconfig

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/hirsh012/varnish-cache/internal/domain"
)

// backendEntry mirrors one YAML list item under `backends:`.
type backendEntry struct {
	Name       string `mapstructure:"name"`
	Address4   string `mapstructure:"address4"`
	Address6   string `mapstructure:"address6"`
	HostHeader string `mapstructure:"host_header"`

	Probe struct {
		URL            string `mapstructure:"url"`
		Request        string `mapstructure:"request"`
		TimeoutMS      int    `mapstructure:"timeout_ms"`
		IntervalMS     int    `mapstructure:"interval_ms"`
		Window         int    `mapstructure:"window"`
		Threshold      int    `mapstructure:"threshold"`
		Initial        int    `mapstructure:"initial"`
		ExpectedStatus int    `mapstructure:"expected_status"`
	} `mapstructure:"probe"`
}

type fileSchema struct {
	Backends []backendEntry `mapstructure:"backends"`
}

// Load reads a YAML backend definition file at path and returns one
// domain.BackendConfig per entry, with its ProbeSpec defaults already
// resolved via ProbeSpec.WithDefaults.
func Load(path string) ([]domain.BackendConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("vclconfig: read %s: %w", path, err)
	}

	var schema fileSchema
	if err := v.Unmarshal(&schema); err != nil {
		return nil, fmt.Errorf("vclconfig: unmarshal %s: %w", path, err)
	}

	out := make([]domain.BackendConfig, 0, len(schema.Backends))
	for _, b := range schema.Backends {
		if b.Address4 == "" && b.Address6 == "" {
			return nil, fmt.Errorf("vclconfig: backend %q has neither address4 nor address6", b.Name)
		}
		initial := b.Probe.Initial
		if initial == 0 {
			initial = domain.InitialUnset
		}
		spec := domain.ProbeSpec{
			URL:            b.Probe.URL,
			Request:        b.Probe.Request,
			Timeout:        millis(b.Probe.TimeoutMS),
			Interval:       millis(b.Probe.IntervalMS),
			Window:         b.Probe.Window,
			Threshold:      b.Probe.Threshold,
			Initial:        initial,
			ExpectedStatus: b.Probe.ExpectedStatus,
		}.WithDefaults()

		out = append(out, domain.BackendConfig{
			ID:          uuid.New(),
			DisplayName: b.Name,
			Address4:    b.Address4,
			Address6:    b.Address6,
			HostHeader:  b.HostHeader,
			Probe:       spec,
		})
	}
	return out, nil
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
