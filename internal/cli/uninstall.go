package cli

import (
	"fmt"

	"github.com/addonctl/addonctl/internal/project"
	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:     "uninstall <id>...",
	Aliases: []string{"u", "rm"},
	Short:   "Remove installed assets",
	Long: `Delete each asset's folder under addons/ and drop it from the state file.

The cached archive is kept; run clean to remove it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.store()
	if err != nil {
		return err
	}

	for _, id := range args {
		asset, ok := store.Get(id)
		if !ok {
			return fmt.Errorf("asset %s is not registered", id)
		}

		if asset.Installed() {
			if err := a.project.RemoveAddon(asset.InstallFolder); err != nil {
				return fmt.Errorf("uninstalling %s: %w", id, err)
			}
			a.logger.Info("removed addon folder", "asset_id", id, "path", project.InstallPath(asset.InstallFolder))
		}

		if err := store.Remove(cmd.Context(), id); err != nil {
			return fmt.Errorf("uninstalling %s: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", asset.ID, asset.Title)
	}
	return nil
}
