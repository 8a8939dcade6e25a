package config

const (
	defaultListen      = ":5000"
	defaultBodyLimitMB = 50
	defaultCORSOrigins = "*"

	defaultGeneratorTarget  = "http://localhost:11434"
	defaultGeneratorModel   = "llama2"
	defaultGeneratorTimeout = "60s"

	defaultEventsTopic = "adpulse.reports"
)

// Events providers.
const (
	EventsProviderNop   = "nop"
	EventsProviderKafka = "kafka"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:      defaultListen,
			BodyLimitMB: defaultBodyLimitMB,
			CORSOrigins: defaultCORSOrigins,
		},
		Generator: GeneratorConfig{
			Target:  defaultGeneratorTarget,
			Model:   defaultGeneratorModel,
			Timeout: defaultGeneratorTimeout,
		},
		Events: EventsConfig{
			Provider: EventsProviderNop,
			Topic:    defaultEventsTopic,
		},
		MCP: MCPConfig{
			Enabled: true,
		},
	}
}
