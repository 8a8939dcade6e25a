// Package configcmder provides the config command for managing persistent
// adpulse configuration stored in the .adpulse/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent adpulse configuration.

Configuration is stored as config.toml in the .adpulse/ directory and provides
default values for command flags. CLI flags and ADPULSE_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, server.body_limit_mb, server.cors_origins,
  generator.target, generator.model, generator.timeout,
  events.provider, events.brokers, events.topic,
  mcp.enabled

Use subcommands to get, set, or list configuration values:
  adpulse config set <key> <value>    Set a configuration value
  adpulse config get <key>            Get a configuration value
  adpulse config list                 List all configuration values

Examples:
  adpulse config set generator.model mistral
  adpulse config set events.brokers broker-1:9092,broker-2:9092
  adpulse config get generator.target
  adpulse config list`

const configShortDesc string = "Manage persistent adpulse configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
