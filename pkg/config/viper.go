package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papercomputeco/adpulse/pkg/dotdir"
)

const envPrefix = "ADPULSE"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), loads .env files, and binds environment
// variables with the ADPULSE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (ADPULSE_SERVER_LISTEN, ADPULSE_GENERATOR_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := loadDotEnv(target); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// loadDotEnv loads ./.env and <target>/.env when present. Variables already in
// the environment win.
func loadDotEnv(target string) error {
	candidates := []string{".env"}
	if target != "" {
		candidates = append(candidates, filepath.Join(target, ".env"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.body_limit_mb", d.Server.BodyLimitMB)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	// Generator
	v.SetDefault("generator.target", d.Generator.Target)
	v.SetDefault("generator.model", d.Generator.Model)
	v.SetDefault("generator.timeout", d.Generator.Timeout)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// MCP
	v.SetDefault("mcp.enabled", d.MCP.Enabled)
}

// FromViper materializes a validated Config from the viper precedence chain.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		Server: ServerConfig{
			Listen:      v.GetString("server.listen"),
			BodyLimitMB: v.GetInt("server.body_limit_mb"),
			CORSOrigins: v.GetString("server.cors_origins"),
		},
		Generator: GeneratorConfig{
			Target:  v.GetString("generator.target"),
			Model:   v.GetString("generator.model"),
			Timeout: v.GetString("generator.timeout"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  brokerList(v.GetStringSlice("events.brokers")),
			Topic:    v.GetString("events.topic"),
		},
		MCP: MCPConfig{
			Enabled: v.GetBool("mcp.enabled"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// brokerList accepts both TOML arrays and a comma-separated env value.
func brokerList(raw []string) []string {
	var out []string
	for _, entry := range raw {
		out = append(out, splitList(entry)...)
	}
	return out
}
