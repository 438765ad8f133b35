// Package config provides configuration loading and validation for the
// latstat proxy.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
//
// Example YAML:
//
//	listen: "127.0.0.1:8080"
//	upstreamTimeout: 30s
//	stats:
//	  interval: 10s
//	sweep:
//	  interval: 1m
//	  maxEntryAge: 5m
//	intercept:
//	  requestHeaders:
//	    X-Inspected-By: latstat
//	  responseStrip:
//	    - Server
type Config struct {
	// Listen is the host:port the proxy binds to.
	Listen string `json:"listen" yaml:"listen"`

	// UpstreamTimeout bounds the upstream round trip.
	UpstreamTimeout Duration `json:"upstreamTimeout,omitempty" yaml:"upstreamTimeout,omitempty"`

	// Stats controls periodic console reporting.
	Stats StatsConfig `json:"stats,omitempty" yaml:"stats,omitempty"`

	// Sweep controls eviction of stalled exchange records.
	Sweep SweepConfig `json:"sweep,omitempty" yaml:"sweep,omitempty"`

	// Intercept defines the header transformations applied while an
	// exchange is paused.
	Intercept InterceptConfig `json:"intercept,omitempty" yaml:"intercept,omitempty"`

	// NoColor disables colored console output.
	NoColor bool `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// StatsConfig controls periodic statistics reporting.
type StatsConfig struct {
	// Interval between console stats reports; 0 disables periodic reports.
	Interval Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
}

// SweepConfig controls the background eviction of exchanges that never
// complete.
type SweepConfig struct {
	// Interval between sweeps.
	Interval Duration `json:"interval,omitempty" yaml:"interval,omitempty"`

	// MaxEntryAge is the age past which an in-flight record is evicted.
	MaxEntryAge Duration `json:"maxEntryAge,omitempty" yaml:"maxEntryAge,omitempty"`
}

// InterceptConfig defines header transformations for both directions.
type InterceptConfig struct {
	// RequestHeaders are set on every request before forwarding.
	RequestHeaders map[string]string `json:"requestHeaders,omitempty" yaml:"requestHeaders,omitempty"`

	// RequestStrip lists header names removed from every request.
	RequestStrip []string `json:"requestStrip,omitempty" yaml:"requestStrip,omitempty"`

	// ResponseHeaders are set on every response before returning it.
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty" yaml:"responseHeaders,omitempty"`

	// ResponseStrip lists header names removed from every response.
	ResponseStrip []string `json:"responseStrip,omitempty" yaml:"responseStrip,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		UpstreamTimeout: Duration(30 * time.Second),
		Stats:           StatsConfig{Interval: Duration(10 * time.Second)},
		Sweep: SweepConfig{
			Interval:    Duration(time.Minute),
			MaxEntryAge: Duration(5 * time.Minute),
		},
	}
}

// Load reads, parses and validates a YAML configuration file. Omitted
// fields take their defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Duration wraps time.Duration with human-readable YAML/JSON encoding
// ("30s", "5m").
type Duration time.Duration

// D returns the wrapped time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if s == "" || s == "null" {
		*d = 0
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	if s == "" {
		*d = 0
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}
