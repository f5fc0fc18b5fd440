package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/krantius/raftsim/raft"
)

// Config is the driver configuration. Timing is overlaid on the named preset,
// so a file only needs the durations it changes.
type Config struct {
	Servers  int             `json:"servers"`
	Preset   string          `json:"preset"`
	Port     int             `json:"port"`
	LogLevel string          `json:"logLevel"`
	Seed     int64           `json:"seed"`
	Timing   json.RawMessage `json:"timing"`
}

func defaultConfig() *Config {
	return &Config{
		Servers:  5,
		Preset:   "default",
		Port:     8001,
		LogLevel: "info",
	}
}

// LoadConfig reads the JSON file at path, if any, and applies the RAFT_*
// environment variables on top
func LoadConfig(path string) (*Config, error) {
	c := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}

		if err := json.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("RAFT_SERVERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RAFT_SERVERS: %w", err)
		}
		c.Servers = n
	}

	if v := getenv("RAFT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RAFT_PORT: %w", err)
		}
		c.Port = port
	}

	if v := getenv("RAFT_PRESET"); v != "" {
		c.Preset = v
	}

	if v := getenv("RAFT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	return nil
}

// Raft resolves the timing config of the cluster
func (c *Config) Raft() (raft.Config, error) {
	cfg, err := raft.Preset(c.Preset)
	if err != nil {
		return raft.Config{}, err
	}

	if len(c.Timing) > 0 {
		if err := json.Unmarshal(c.Timing, &cfg); err != nil {
			return raft.Config{}, fmt.Errorf("%w: timing: %v", raft.ErrInvalidConfig, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return raft.Config{}, err
	}

	return cfg, nil
}
