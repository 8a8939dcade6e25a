// Package watchcmder provides the watch command, analyzing exports as they
// are dropped into a directory.
package watchcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/adpulse/cmd/adpulse/pipeline"
	"github.com/papercomputeco/adpulse/pkg/cliui"
	"github.com/papercomputeco/adpulse/pkg/config"
	"github.com/papercomputeco/adpulse/pkg/logger"
	"github.com/papercomputeco/adpulse/pkg/watch"
)

type watchCommander struct {
	dir        string
	workers    uint
	existing   bool
	noInsights bool
	settle     time.Duration
	logFile    string

	genTarget  string
	genModel   string
	genTimeout string
	eventsProv string
	brokers    string
	topic      string

	cfg    *config.Config
	out    io.Writer
	mu     sync.Mutex
	debug  bool
	logger *slog.Logger
}

var watchFlags = []string{
	config.FlagGenTarget,
	config.FlagGenModel,
	config.FlagGenTimeout,
	config.FlagEventsProv,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

const watchLongDesc string = `Watch a directory for campaign exports.

Every .csv, .tsv or .xlsx file created in the directory is analyzed once it
stops changing, and its KPI panel and summary are printed. Reports are
published to the configured event provider like uploads are.

Examples:
  adpulse watch ./exports
  adpulse watch ./exports --existing --workers 4
  adpulse watch ./exports --events-provider kafka --events-brokers localhost:9092`

const watchShortDesc string = "Analyze exports as they land in a directory"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = pipeline.LoadConfig(cmd, watchFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.dir = args[0]
			cmder.out = cmd.OutOrStdout()

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx)
		},
		SilenceUsage: true,
	}

	cmd.Flags().UintVarP(&cmder.workers, "workers", "w", 2, "Number of exports analyzed in parallel")
	cmd.Flags().BoolVar(&cmder.existing, "existing", false, "Also analyze exports already in the directory")
	cmd.Flags().BoolVar(&cmder.noInsights, "no-insights", false, "Skip the generation service")
	cmd.Flags().DurationVar(&cmder.settle, "settle", watch.DefaultSettle, "Quiet period before a changed file is analyzed")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	config.AddStringFlag(cmd, config.Flags, config.FlagGenTarget, &cmder.genTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagGenModel, &cmder.genModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagGenTimeout, &cmder.genTimeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProv, &cmder.eventsProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsTopic, &cmder.topic)

	return cmd
}

func (c *watchCommander) run(ctx context.Context) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		c.logger = logger.Multi(c.logger, logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithWriter(f),
		))
	}

	pub, err := pipeline.NewPublisher(c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	analyzer := pipeline.NewAnalyzer(c.cfg, pub, c.logger)
	defer analyzer.Close()

	var a watch.Analyzer = analyzer
	if c.noInsights {
		a = withoutInsights{analyzer}
	}

	pool, err := watch.NewPool(&watch.Config{
		Analyzer:   a,
		NumWorkers: c.workers,
		OnOutcome:  c.print,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	w, err := watch.NewWatcher(watch.WatcherConfig{
		Dir:          c.dir,
		Pool:         pool,
		Settle:       c.settle,
		ScanExisting: c.existing,
		Logger:       c.logger,
	})
	if err != nil {
		return err
	}

	return w.Run(ctx)
}

// print renders one outcome. Workers call it concurrently.
func (c *watchCommander) print(o watch.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := filepath.Base(o.Path)
	if o.Err != nil {
		cliui.Fprint(c.out, fmt.Sprintf("  %s %s %s\n",
			cliui.FailMark,
			name,
			cliui.DimStyle.Render(o.Err.Error()),
		))
		return
	}

	cliui.Fprint(c.out, fmt.Sprintf("  %s %s %s\n",
		cliui.SuccessMark,
		name,
		cliui.StepStyle.Render(fmt.Sprintf("(%s)", cliui.FormatDuration(o.Duration))),
	))
	cliui.Fprint(c.out, cliui.KPIPanel(name, len(o.Result.Data), o.Result.KPIs)+"\n")

	if o.Result.Insights.Skipped {
		return
	}
	if o.Result.Insights.Degraded() {
		cliui.Fprint(c.out, fmt.Sprintf("  %s %s\n\n", cliui.WarnMark, o.Result.Insights.String()))
		return
	}
	rendered, err := cliui.RenderMarkdown(o.Result.Insights.Text)
	if err != nil {
		c.logger.Debug("rendering insights", "error", err)
	}
	cliui.Fprint(c.out, rendered)
}
