package raft

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config holds the timing knobs of a node. It is a value: every node keeps
// its own copy and only changes it through Configure while stopped.
type Config struct {
	MinMessageDelay    time.Duration
	MaxMessageDelay    time.Duration
	RPCTimeout         time.Duration
	MinElectionTimeout time.Duration
	MaxElectionTimeout time.Duration
	HeartbeatInterval  time.Duration
	BatchSize          int
}

// DefaultConfig is slowed down far enough to follow individual messages
func DefaultConfig() Config {
	return Config{
		MinMessageDelay:    1000 * time.Millisecond,
		MaxMessageDelay:    1500 * time.Millisecond,
		RPCTimeout:         5000 * time.Millisecond,
		MinElectionTimeout: 10000 * time.Millisecond,
		MaxElectionTimeout: 20000 * time.Millisecond,
		HeartbeatInterval:  3000 * time.Millisecond,
		BatchSize:          1,
	}
}

// RealisticConfig uses delays closer to a LAN deployment
func RealisticConfig() Config {
	return Config{
		MinMessageDelay:    50 * time.Millisecond,
		MaxMessageDelay:    100 * time.Millisecond,
		RPCTimeout:         250 * time.Millisecond,
		MinElectionTimeout: 750 * time.Millisecond,
		MaxElectionTimeout: 1200 * time.Millisecond,
		HeartbeatInterval:  200 * time.Millisecond,
		BatchSize:          1,
	}
}

// Preset returns a named config: "default" or "realistic"
func Preset(name string) (Config, error) {
	switch name {
	case "", "default":
		return DefaultConfig(), nil
	case "realistic":
		return RealisticConfig(), nil
	default:
		return Config{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, name)
	}
}

// Validate checks if the configuration is usable
func (c Config) Validate() error {
	switch {
	case c.MinMessageDelay < 0:
		return fmt.Errorf("%w: negative message delay", ErrInvalidConfig)
	case c.MaxMessageDelay < c.MinMessageDelay:
		return fmt.Errorf("%w: max message delay %v below min %v", ErrInvalidConfig, c.MaxMessageDelay, c.MinMessageDelay)
	case c.RPCTimeout <= 0:
		return fmt.Errorf("%w: rpc timeout must be positive", ErrInvalidConfig)
	case c.MinElectionTimeout <= 0:
		return fmt.Errorf("%w: election timeout must be positive", ErrInvalidConfig)
	case c.MaxElectionTimeout < c.MinElectionTimeout:
		return fmt.Errorf("%w: max election timeout %v below min %v", ErrInvalidConfig, c.MaxElectionTimeout, c.MinElectionTimeout)
	case c.HeartbeatInterval <= 0:
		return fmt.Errorf("%w: heartbeat interval must be positive", ErrInvalidConfig)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch size must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Live reports whether elections are expected to settle: an election timeout
// outlasts a full request/response round trip plus the RPC timeout.
func (c Config) Live() bool {
	return c.MinElectionTimeout > 2*c.MaxMessageDelay+c.RPCTimeout
}

// configJSON is the wire form of Config, durations in milliseconds
type configJSON struct {
	MinMessageDelay    int64 `json:"minMessageDelay"`
	MaxMessageDelay    int64 `json:"maxMessageDelay"`
	RPCTimeout         int64 `json:"rpcTimeout"`
	MinElectionTimeout int64 `json:"minElectionTimeout"`
	MaxElectionTimeout int64 `json:"maxElectionTimeout"`
	HeartbeatInterval  int64 `json:"heartbeatInterval"`
	BatchSize          int   `json:"batchSize"`
}

func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(configJSON{
		MinMessageDelay:    c.MinMessageDelay.Milliseconds(),
		MaxMessageDelay:    c.MaxMessageDelay.Milliseconds(),
		RPCTimeout:         c.RPCTimeout.Milliseconds(),
		MinElectionTimeout: c.MinElectionTimeout.Milliseconds(),
		MaxElectionTimeout: c.MaxElectionTimeout.Milliseconds(),
		HeartbeatInterval:  c.HeartbeatInterval.Milliseconds(),
		BatchSize:          c.BatchSize,
	})
}

// UnmarshalJSON overlays the fields present in data on the current values,
// so a partial document can tweak a preset.
func (c *Config) UnmarshalJSON(data []byte) error {
	j := configJSON{
		MinMessageDelay:    c.MinMessageDelay.Milliseconds(),
		MaxMessageDelay:    c.MaxMessageDelay.Milliseconds(),
		RPCTimeout:         c.RPCTimeout.Milliseconds(),
		MinElectionTimeout: c.MinElectionTimeout.Milliseconds(),
		MaxElectionTimeout: c.MaxElectionTimeout.Milliseconds(),
		HeartbeatInterval:  c.HeartbeatInterval.Milliseconds(),
		BatchSize:          c.BatchSize,
	}

	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	*c = Config{
		MinMessageDelay:    time.Duration(j.MinMessageDelay) * time.Millisecond,
		MaxMessageDelay:    time.Duration(j.MaxMessageDelay) * time.Millisecond,
		RPCTimeout:         time.Duration(j.RPCTimeout) * time.Millisecond,
		MinElectionTimeout: time.Duration(j.MinElectionTimeout) * time.Millisecond,
		MaxElectionTimeout: time.Duration(j.MaxElectionTimeout) * time.Millisecond,
		HeartbeatInterval:  time.Duration(j.HeartbeatInterval) * time.Millisecond,
		BatchSize:          j.BatchSize,
	}
	return nil
}
