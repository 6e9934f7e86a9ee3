package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// HostConfig holds per-host overrides for a single Gopher server.
// This allows tuning crawl behavior for individual gopherholes, e.g.
// slowing down on a known-fragile server.
type HostConfig struct {
	// Depth overrides the global maximum depth for this host.
	// If zero, the global MaxDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// Delay overrides the global inter-request delay for this host.
	// If zero, the global Delay is used.
	Delay time.Duration `yaml:"delay,omitempty"`

	// SpanHosts overrides the global span-hosts setting for crawls
	// starting at this host.
	SpanHosts *bool `yaml:"spanHosts,omitempty"`

	// AllowAscent overrides the global ascension setting for crawls
	// starting at this host.
	AllowAscent *bool `yaml:"allowAscent,omitempty"`
}

// UnmarshalYAML decodes a host override block. The delay is written in
// Go duration syntax ("500ms", "2s"), which the yaml package cannot
// decode into time.Duration on its own.
func (hc *HostConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Depth       int    `yaml:"depth"`
		Delay       string `yaml:"delay"`
		SpanHosts   *bool  `yaml:"spanHosts"`
		AllowAscent *bool  `yaml:"allowAscent"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	hc.Depth = raw.Depth
	hc.SpanHosts = raw.SpanHosts
	hc.AllowAscent = raw.AllowAscent
	if raw.Delay != "" {
		d, err := time.ParseDuration(raw.Delay)
		if err != nil {
			return fmt.Errorf("invalid delay %q: %w", raw.Delay, err)
		}
		hc.Delay = d
	}
	return nil
}

// File represents the structure of the .gophermirror configuration file.
type File struct {
	// Hosts maps hostnames to their per-host overrides.
	// Keys are bare hostnames (e.g., "gopher.example.org").
	Hosts map[string]HostConfig `yaml:"hosts,omitempty"`

	// Defaults contains default overrides applied to all hosts unless
	// the host-specific configuration sets its own value.
	Defaults HostConfig `yaml:"defaults,omitempty"`
}

// GetHostConfig returns the configuration for a specific hostname.
// It merges the host-specific configuration with defaults.
func (cf *File) GetHostConfig(host string) HostConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with host-specific configuration if present
	if hostConfig, ok := cf.Hosts[host]; ok {
		if hostConfig.Depth != 0 {
			result.Depth = hostConfig.Depth
		}
		if hostConfig.Delay != 0 {
			result.Delay = hostConfig.Delay
		}
		if hostConfig.SpanHosts != nil {
			result.SpanHosts = hostConfig.SpanHosts
		}
		if hostConfig.AllowAscent != nil {
			result.AllowAscent = hostConfig.AllowAscent
		}
	}

	return result
}

// Apply overlays the host overrides onto a Config, returning a copy.
// Zero-valued overrides leave the corresponding Config field untouched.
func (hc HostConfig) Apply(c *Config) *Config {
	merged := *c
	if hc.Depth != 0 {
		merged.MaxDepth = hc.Depth
	}
	if hc.Delay != 0 {
		merged.Delay = hc.Delay
	}
	if hc.SpanHosts != nil {
		merged.SpanHosts = *hc.SpanHosts
	}
	if hc.AllowAscent != nil {
		merged.AllowAscent = *hc.AllowAscent
	}
	return &merged
}
