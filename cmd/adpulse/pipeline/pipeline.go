// Package pipeline wires configuration into the analysis pipeline shared by
// the serve, analyze and watch commands.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/adpulse/pkg/config"
	"github.com/papercomputeco/adpulse/pkg/eventstream"
	"github.com/papercomputeco/adpulse/pkg/eventstream/kafka"
	"github.com/papercomputeco/adpulse/pkg/eventstream/nop"
	"github.com/papercomputeco/adpulse/pkg/insight"
	"github.com/papercomputeco/adpulse/pkg/report"
)

// LoadConfig resolves the command's configuration through the viper
// precedence chain (flag > env > config file > default). Only the flags
// named in registryKeys are bound.
func LoadConfig(cmd *cobra.Command, registryKeys []string) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}

	config.BindRegisteredFlags(v, cmd, config.Flags, registryKeys)

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewPublisher builds the report event publisher named by cfg.Events.
func NewPublisher(cfg *config.Config, logger *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.Events.Provider {
	case config.EventsProviderKafka:
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		logger.Info("publishing report events",
			"provider", cfg.Events.Provider,
			"brokers", cfg.Events.Brokers,
			"topic", cfg.Events.Topic,
		)
		return pub, nil
	case config.EventsProviderNop, "":
		return nop.NewPublisher(), nil
	default:
		return nil, fmt.Errorf("unknown events provider %q", cfg.Events.Provider)
	}
}

// NewAnalyzer builds an Analyzer streaming insights from cfg.Generator and
// publishing through pub.
func NewAnalyzer(cfg *config.Config, pub eventstream.Publisher, logger *slog.Logger) *report.Analyzer {
	requester := insight.NewRequester(insight.Config{
		Target:  cfg.Generator.Target,
		Model:   cfg.Generator.Model,
		Timeout: cfg.Generator.TimeoutDuration(),
		Logger:  logger,
	})

	return report.NewAnalyzer(report.Config{
		Generator: requester,
		Model:     cfg.Generator.Model,
		Publisher: pub,
		Logger:    logger,
	})
}
