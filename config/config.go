// Package config defines the server configuration model and its JSON
// persistence. A configuration describes up to MaxServers servers, each
// either a TCP echo server or an HTTP server returning fixed content.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// KindEcho is a TCP server that mirrors every byte it receives.
	KindEcho = "echo"
	// KindWeb is an HTTP server that answers every request with fixed content.
	KindWeb = "web"

	// DefaultBindAddress listens on all interfaces.
	DefaultBindAddress = "0.0.0.0"

	// MaxServers is the maximum number of servers in one configuration.
	MaxServers = 10

	defaultFileName = "server_config.json"
)

var (
	ErrNoServers      = errors.New("at least one server must be configured")
	ErrTooManyServers = fmt.Errorf("maximum of %d servers allowed", MaxServers)
	ErrMissingContent = errors.New("web servers must have content specified")
	ErrConfigNotFound = errors.New("configuration file not found")
)

// ServerSpec describes a single server to run. The JSON field names match
// the on-disk configuration format.
type ServerSpec struct {
	Kind        string `json:"type"`
	Port        int    `json:"port"`
	Content     string `json:"content,omitempty"`
	BindAddress string `json:"bind_address"`
}

// Validate checks a single spec in isolation.
func (s ServerSpec) Validate() error {
	if s.Kind != KindEcho && s.Kind != KindWeb {
		return fmt.Errorf("invalid server type: %q, must be %q or %q", s.Kind, KindEcho, KindWeb)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid port: %d, must be between 1 and 65535", s.Port)
	}
	if s.Kind == KindWeb && s.Content == "" {
		return ErrMissingContent
	}
	return nil
}

// Addr returns the listen address for the spec.
func (s ServerSpec) Addr() string {
	bind := s.BindAddress
	if bind == "" {
		bind = DefaultBindAddress
	}
	return net.JoinHostPort(bind, strconv.Itoa(s.Port))
}

// Config is the full parsed configuration.
type Config struct {
	Servers []ServerSpec `json:"servers"`
}

// Validate checks every spec and the cross-spec invariants.
func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return ErrNoServers
	}
	if len(c.Servers) > MaxServers {
		return ErrTooManyServers
	}

	ports := make(map[int]struct{}, len(c.Servers))
	for _, s := range c.Servers {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := ports[s.Port]; dup {
			return fmt.Errorf("port %d is used by multiple servers", s.Port)
		}
		ports[s.Port] = struct{}{}
	}

	return nil
}

// Load reads and validates a configuration file. A missing file is reported
// as ErrConfigNotFound so callers can point the user at the setup tool.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	for i := range cfg.Servers {
		if cfg.Servers[i].BindAddress == "" {
			cfg.Servers[i].BindAddress = DefaultBindAddress
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}
	return nil
}

// DefaultPath returns the configuration path used when none is given.
func DefaultPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return defaultFileName
	}
	return filepath.Join(wd, defaultFileName)
}
