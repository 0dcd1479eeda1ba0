package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/case-intake/cmd/case-intake/ui"
	"github.com/spherical/case-intake/internal/config"
	"github.com/spherical/case-intake/pkg/intake"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "case-intake",
	Short: "Case intake - merge, edit and prepare case documents",
	Long: `case-intake turns the files attached to a case into one reviewable PDF,
edits its pages (rotate, enhance, crop, reorder, annotate, filter), and
produces proof images for correspondence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.InitUI(noColor, verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default $"+intake.ConfigEnv+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}

// newClient builds a library client from the config flag, the environment
// and the verbosity flag.
func newClient() (*intake.Client, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv(intake.ConfigEnv)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	} else if cfg.Log.Level == "info" {
		// Progress is shown by the UI; keep the log for problems.
		cfg.Log.Level = "warn"
	}
	return intake.NewClientWithConfig(cfg)
}
