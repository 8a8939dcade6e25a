// Package servecmder provides the serve command running the upload API server.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/adpulse/api"
	"github.com/papercomputeco/adpulse/cmd/adpulse/pipeline"
	"github.com/papercomputeco/adpulse/pkg/config"
	"github.com/papercomputeco/adpulse/pkg/logger"
)

type serveCommander struct {
	listen      string
	bodyLimitMB int
	corsOrigins string
	genTarget   string
	genModel    string
	genTimeout  string
	eventsProv  string
	brokers     string
	topic       string

	cfg    *config.Config
	debug  bool
	json   bool
	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagBodyLimit,
	config.FlagCORSOrigins,
	config.FlagGenTarget,
	config.FlagGenModel,
	config.FlagGenTimeout,
	config.FlagEventsProv,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

const serveLongDesc string = `Run the adpulse upload server.

Clients POST a campaign export as multipart form data (field "file") to
/api/upload and receive the parsed rows, the KPI totals and a generated
summary:

  {"data": [...], "kpis": {...}, "insights": "..."}

The server also answers GET /ping and, unless mcp.enabled is false, exposes
the analyze_campaign tool over MCP at /mcp.

Examples:
  adpulse serve
  adpulse serve --listen :8080 --model mistral
  adpulse serve --events-provider kafka --events-brokers localhost:9092`

const serveShortDesc string = "Run the upload API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = pipeline.LoadConfig(cmd, serveFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddIntFlag(cmd, config.Flags, config.FlagBodyLimit, &cmder.bodyLimitMB)
	config.AddStringFlag(cmd, config.Flags, config.FlagCORSOrigins, &cmder.corsOrigins)
	config.AddStringFlag(cmd, config.Flags, config.FlagGenTarget, &cmder.genTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagGenModel, &cmder.genModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagGenTimeout, &cmder.genTimeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProv, &cmder.eventsProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsTopic, &cmder.topic)
	cmd.Flags().BoolVar(&cmder.json, "log-json", false, "Emit JSON logs instead of pretty output")

	return cmd
}

func (c *serveCommander) run() error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(!c.json),
		logger.WithJSON(c.json),
	)

	pub, err := pipeline.NewPublisher(c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			c.logger.Warn("closing event publisher", "error", err)
		}
	}()

	analyzer := pipeline.NewAnalyzer(c.cfg, pub, c.logger)
	defer analyzer.Close()

	server, err := api.NewServer(api.Config{
		ListenAddr:  c.cfg.Server.Listen,
		BodyLimit:   c.cfg.Server.BodyLimitMB * 1024 * 1024,
		CORSOrigins: c.cfg.Server.CORSOrigins,
		MCPEnabled:  c.cfg.MCP.Enabled,
	}, analyzer, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("generating insights with",
		"target", c.cfg.Generator.Target,
		"model", c.cfg.Generator.Model,
		"timeout", c.cfg.Generator.Timeout,
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}
