package cli

import (
	"errors"
	"fmt"

	"github.com/addonctl/addonctl/internal/project"
	"github.com/addonctl/addonctl/internal/state"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Prepare a Godot project for addon management",
	Long: `Create addons/, the state file, and addons/.gitignore.

The Godot version is read from project.godot and used to filter searches.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	store, err := a.project.Init()
	if errors.Is(err, state.ErrAlreadyInitialized) {
		fmt.Fprintf(cmd.OutOrStdout(), "Already initialized: %s\n", a.project.Absolute(project.StatePath()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("initializing project: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s for Godot %s\n", a.project.Absolute(project.StatePath()), store.GodotVersion())
	return nil
}
