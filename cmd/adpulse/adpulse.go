// Package adpulsecmder
package adpulsecmder

import (
	"github.com/spf13/cobra"

	analyzecmder "github.com/papercomputeco/adpulse/cmd/adpulse/analyze"
	configcmder "github.com/papercomputeco/adpulse/cmd/adpulse/config"
	servecmder "github.com/papercomputeco/adpulse/cmd/adpulse/serve"
	watchcmder "github.com/papercomputeco/adpulse/cmd/adpulse/watch"
	versioncmder "github.com/papercomputeco/adpulse/cmd/version"
)

const adpulseLongDesc string = `adpulse turns advertising campaign exports into KPIs and a written summary.

Upload a CSV to the server, or analyze files locally:
  adpulse serve               Run the upload API server
  adpulse analyze <file>      Analyze a single export
  adpulse watch <dir>         Analyze exports as they land in a directory
  adpulse config              Manage persistent configuration`

const adpulseShortDesc string = "adpulse - Campaign KPIs and insights"

func NewAdpulseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adpulse",
		Short: adpulseShortDesc,
		Long:  adpulseLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .adpulse/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(analyzecmder.NewAnalyzeCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
