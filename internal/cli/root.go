package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/addonctl/addonctl/internal/branding"
	"github.com/addonctl/addonctl/internal/config"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	projectDir string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` installs Godot Asset Library addons into a project's addons/ directory.

Assets are registered in addons/` + branding.StateFileName() + `, their archives are cached in
addons/` + branding.HomeDir() + `/, and only the plugin folder of each archive is extracted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", "", "Godot project directory (default: $"+branding.EnvVar("PROJECT")+" or the current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
