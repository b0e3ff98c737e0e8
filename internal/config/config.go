// Package config loads the static herd topology and Places API settings
// that a proxyherd daemon needs at startup.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Places holds the settings needed to call the external Places search API.
type Places struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config is the static, load-once-at-startup configuration described in
// spec.md §6: the name->port map, the name->peers adjacency, and the
// Places API settings.
type Config struct {
	Ports       map[string]int      `mapstructure:"ports"`
	Peers       map[string][]string `mapstructure:"peers"`
	Places      Places              `mapstructure:"places"`
	MetricsAddr string              `mapstructure:"metrics_addr"`
}

// Load reads the YAML configuration at path and validates its shape.
// It does not resolve or validate a particular server name; callers do
// that against the returned Ports map.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("places.timeout", 5*time.Second)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1/places:searchNearby")
	v.SetDefault("metrics_addr", ":9090")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}

	if len(cfg.Ports) == 0 {
		return nil, fmt.Errorf("config: %s declares no servers under \"ports\"", path)
	}

	for name, peers := range cfg.Peers {
		if _, ok := cfg.Ports[name]; !ok {
			return nil, fmt.Errorf("config: peers entry %q is not a known server", name)
		}
		for _, p := range peers {
			if _, ok := cfg.Ports[p]; !ok {
				return nil, fmt.Errorf("config: %q lists unknown peer %q", name, p)
			}
		}
	}

	return &cfg, nil
}

// Names returns the valid server names in no particular order (map
// iteration order), used to build the usage message when the CLI
// argument doesn't match any; the caller sorts them.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Ports))
	for name := range c.Ports {
		names = append(names, name)
	}
	return names
}

// PeerAddrs returns the dial address (host:port) for every peer of name.
func (c *Config) PeerAddrs(name string) map[string]string {
	out := make(map[string]string)
	for _, p := range c.Peers[name] {
		if port, ok := c.Ports[p]; ok {
			out[p] = fmt.Sprintf("localhost:%d", port)
		}
	}
	return out
}
