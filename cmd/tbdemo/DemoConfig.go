package main

import (
	"fmt"
	"os"

	"github.com/araddon/dateparse"
	"gopkg.in/yaml.v3"
)

// DemoConfig is the configuration surface of the demo harness. Exactly one
// of the credential alternatives is used: username/password, a public id,
// or a pre-issued token.
type DemoConfig struct {
	// host:port of the platform
	Host string `yaml:"host"`

	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	PublicID string `yaml:"publicId,omitempty"`
	Token    string `yaml:"token,omitempty"`

	// device to inspect; default is the first listed device
	DeviceID string `yaml:"deviceId,omitempty"`

	// command id for the live subscription; required when subscribing
	CmdID int `yaml:"cmdId,omitempty"`

	// timeseries window bounds, in any format dateparse understands,
	// e.g. "2026-08-30 12:00" or "Aug 30, 2026". Empty means the
	// platform default of the last hour.
	WindowStart string `yaml:"windowStart,omitempty"`
	WindowEnd   string `yaml:"windowEnd,omitempty"`

	LogLevel string `yaml:"logLevel,omitempty"`
}

// LoadDemoConfig reads and validates the yaml config file.
func LoadDemoConfig(path string) (*DemoConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	cfg := &DemoConfig{LogLevel: "info"}
	if err = yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("config %q: host is required", path)
	}
	if cfg.Token == "" && cfg.PublicID == "" && cfg.Username == "" {
		return nil, fmt.Errorf("config %q: one of token, publicId or username/password is required", path)
	}
	return cfg, nil
}

// Window resolves the configured timeseries window. Zero values mean
// "use the platform default".
func (cfg *DemoConfig) Window() (startTs int64, endTs int64, err error) {
	if cfg.WindowStart != "" {
		start, err := dateparse.ParseLocal(cfg.WindowStart)
		if err != nil {
			return 0, 0, fmt.Errorf("parsing windowStart %q: %w", cfg.WindowStart, err)
		}
		startTs = start.UnixMilli()
	}
	if cfg.WindowEnd != "" {
		end, err := dateparse.ParseLocal(cfg.WindowEnd)
		if err != nil {
			return 0, 0, fmt.Errorf("parsing windowEnd %q: %w", cfg.WindowEnd, err)
		}
		endTs = end.UnixMilli()
	}
	if startTs != 0 && endTs != 0 && endTs <= startTs {
		return 0, 0, fmt.Errorf("windowEnd %q is not after windowStart %q",
			cfg.WindowEnd, cfg.WindowStart)
	}
	return startTs, endTs, nil
}
