package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent adpulse configuration stored as config.toml
// in the .adpulse/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Server    ServerConfig    `toml:"server"`
	Generator GeneratorConfig `toml:"generator"`
	Events    EventsConfig    `toml:"events"`
	MCP       MCPConfig       `toml:"mcp"`
}

// ServerConfig holds upload server settings.
type ServerConfig struct {
	Listen      string `toml:"listen,omitempty" validate:"required"`
	BodyLimitMB int    `toml:"body_limit_mb,omitempty" validate:"gte=1"`
	CORSOrigins string `toml:"cors_origins,omitempty" validate:"required"`
}

// GeneratorConfig holds settings for the Ollama-compatible text generation
// service that writes campaign insights.
type GeneratorConfig struct {
	Target  string `toml:"target,omitempty" validate:"required,url"`
	Model   string `toml:"model,omitempty" validate:"required"`
	Timeout string `toml:"timeout,omitempty" validate:"required,duration"`
}

// TimeoutDuration parses Timeout. Callers should run Validate first.
func (g GeneratorConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(g.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// EventsConfig selects where report events are published.
type EventsConfig struct {
	Provider string   `toml:"provider,omitempty" validate:"oneof=nop kafka"`
	Brokers  []string `toml:"brokers,omitempty" validate:"required_if=Provider kafka"`
	Topic    string   `toml:"topic,omitempty" validate:"required_if=Provider kafka"`
}

// MCPConfig toggles the MCP endpoint on the upload server.
type MCPConfig struct {
	Enabled bool `toml:"enabled"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.body_limit_mb": {
		get: func(c *Config) string {
			if c.Server.BodyLimitMB == 0 {
				return ""
			}
			return strconv.Itoa(c.Server.BodyLimitMB)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid value for server.body_limit_mb: %q", v)
			}
			c.Server.BodyLimitMB = n
			return nil
		},
	},
	"server.cors_origins": {
		get: func(c *Config) string { return c.Server.CORSOrigins },
		set: func(c *Config, v string) error { c.Server.CORSOrigins = v; return nil },
	},
	"generator.target": {
		get: func(c *Config) string { return c.Generator.Target },
		set: func(c *Config, v string) error { c.Generator.Target = v; return nil },
	},
	"generator.model": {
		get: func(c *Config) string { return c.Generator.Model },
		set: func(c *Config, v string) error { c.Generator.Model = v; return nil },
	},
	"generator.timeout": {
		get: func(c *Config) string { return c.Generator.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for generator.timeout: %w", err)
			}
			c.Generator.Timeout = v
			return nil
		},
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case EventsProviderNop, EventsProviderKafka:
				c.Events.Provider = v
				return nil
			default:
				return fmt.Errorf("invalid value for events.provider: %q (available: nop, kafka)", v)
			}
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Events.Brokers = splitList(v)
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"mcp.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.MCP.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for mcp.enabled: %w", err)
			}
			c.MCP.Enabled = b
			return nil
		},
	},
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
