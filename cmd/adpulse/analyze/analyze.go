// Package analyzecmder provides the analyze command, running the upload
// pipeline against a local export.
package analyzecmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/adpulse/cmd/adpulse/pipeline"
	"github.com/papercomputeco/adpulse/pkg/campaign"
	"github.com/papercomputeco/adpulse/pkg/cliui"
	"github.com/papercomputeco/adpulse/pkg/config"
	"github.com/papercomputeco/adpulse/pkg/insight"
	"github.com/papercomputeco/adpulse/pkg/logger"
	"github.com/papercomputeco/adpulse/pkg/report"
)

type analyzeCommander struct {
	path       string
	format     string
	jsonOut    bool
	stream     bool
	noInsights bool

	genTarget  string
	genModel   string
	genTimeout string
	eventsProv string
	brokers    string
	topic      string

	cfg    *config.Config
	out    io.Writer
	debug  bool
	logger *slog.Logger
}

var analyzeFlags = []string{
	config.FlagGenTarget,
	config.FlagGenModel,
	config.FlagGenTimeout,
	config.FlagEventsProv,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

const analyzeLongDesc string = `Analyze a campaign export locally.

Reads a CSV, TSV or XLSX export, totals the "Conversions" and "Amount Spent"
columns and asks the configured generation service for a short summary.
Pass "-" to read CSV from stdin.

Use --json to print the same body the upload server returns, --stream to
print the summary as it is generated, and --no-insights to skip the
generation service entirely.

Examples:
  adpulse analyze q1.csv
  adpulse analyze q1.xlsx --model mistral --stream
  adpulse analyze q1.csv --json | jq .kpis
  cat q1.tsv | adpulse analyze - --format tsv --no-insights`

const analyzeShortDesc string = "Analyze a campaign export"

func NewAnalyzeCmd() *cobra.Command {
	cmder := &analyzeCommander{}

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: analyzeShortDesc,
		Long:  analyzeLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = pipeline.LoadConfig(cmd, analyzeFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.path = args[0]
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

	cmd.Flags().StringVarP(&cmder.format, "format", "f", "", "Export format (csv, tsv, xlsx). Defaults to the file extension")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the upload response body as JSON")
	cmd.Flags().BoolVar(&cmder.stream, "stream", false, "Print the summary as it is generated")
	cmd.Flags().BoolVar(&cmder.noInsights, "no-insights", false, "Skip the generation service")
	config.AddStringFlag(cmd, config.Flags, config.FlagGenTarget, &cmder.genTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagGenModel, &cmder.genModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagGenTimeout, &cmder.genTimeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProv, &cmder.eventsProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsTopic, &cmder.topic)

	return cmd
}

func (c *analyzeCommander) run(ctx context.Context) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	format, err := c.resolveFormat()
	if err != nil {
		return err
	}

	pub, err := pipeline.NewPublisher(c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	analyzer := pipeline.NewAnalyzer(c.cfg, pub, c.logger)
	defer analyzer.Close()

	if c.jsonOut {
		return c.runJSON(ctx, analyzer, format)
	}
	return c.runPretty(ctx, analyzer, format)
}

func (c *analyzeCommander) resolveFormat() (campaign.Format, error) {
	switch strings.ToLower(c.format) {
	case "":
		return campaign.FormatFor(c.path), nil
	case "csv":
		return campaign.FormatCSV, nil
	case "tsv":
		return campaign.FormatTSV, nil
	case "xlsx":
		return campaign.FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported format %q (available: csv, tsv, xlsx)", c.format)
	}
}

func (c *analyzeCommander) runJSON(ctx context.Context, analyzer *report.Analyzer, format campaign.Format) error {
	records, err := c.read(format)
	if err != nil {
		return err
	}

	res, err := analyzer.Analyze(ctx, records, c.options()...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func (c *analyzeCommander) runPretty(ctx context.Context, analyzer *report.Analyzer, format campaign.Format) error {
	fmt.Fprintln(c.out)

	var records []*campaign.Record
	err := cliui.Step(c.out, fmt.Sprintf("Reading %s", c.displayName()), func() error {
		var err error
		records, err = c.read(format)
		return err
	})
	if err != nil {
		return err
	}

	opts := c.options()
	var res *report.Result

	switch {
	case c.stream && !c.noInsights:
		cliui.Fprint(c.out, "\n  "+cliui.StepStyle.Render("Insights")+"\n\n  ")
		// Same single-space join as the final insight text.
		first := true
		opts = append(opts, report.WithFragmentHandler(func(f insight.Fragment) {
			if !first {
				fmt.Fprint(c.out, " ")
			}
			first = false
			fmt.Fprint(c.out, f.Response)
		}))
		res, err = analyzer.Analyze(ctx, records, opts...)
		fmt.Fprint(c.out, "\n\n")
	default:
		msg := "Computing metrics"
		if !c.noInsights {
			msg = fmt.Sprintf("Generating insights with %s", c.cfg.Generator.Model)
		}
		err = cliui.Step(c.out, msg, func() error {
			var err error
			res, err = analyzer.Analyze(ctx, records, opts...)
			return err
		})
	}
	if err != nil {
		return err
	}

	cliui.Fprint(c.out, "\n"+cliui.KPIPanel(c.displayName(), len(res.Data), res.KPIs)+"\n")

	c.printInsights(res.Insights)
	return nil
}

func (c *analyzeCommander) printInsights(r report.InsightResult) {
	switch {
	case r.Skipped:
		return
	case r.Degraded():
		cliui.Fprint(c.out, fmt.Sprintf("\n  %s %s %s\n\n",
			cliui.WarnMark,
			r.String(),
			cliui.DimStyle.Render(describe(r.Err)),
		))
	case c.stream:
		// Already printed as it arrived.
	default:
		rendered, err := cliui.RenderMarkdown(r.Text)
		if err != nil {
			c.logger.Debug("rendering insights", "error", err)
		}
		cliui.Fprint(c.out, "\n"+rendered)
	}
}

// describe gives a one-line reason for a degraded summary.
func describe(err error) string {
	var te *insight.TimeoutError
	if errors.As(err, &te) {
		return fmt.Sprintf("(timed out after %s)", te.Timeout)
	}
	return fmt.Sprintf("(%v)", err)
}

func (c *analyzeCommander) options() []report.Option {
	opts := []report.Option{report.WithSource("analyze", c.displayName())}
	if c.noInsights {
		opts = append(opts, report.WithoutInsights())
	}
	return opts
}

func (c *analyzeCommander) read(format campaign.Format) ([]*campaign.Record, error) {
	if c.path == "-" {
		return campaign.Decode(os.Stdin, format)
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return campaign.Decode(f, format)
}

func (c *analyzeCommander) displayName() string {
	if c.path == "-" {
		return "stdin"
	}
	return filepath.Base(c.path)
}
