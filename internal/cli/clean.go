package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:     "clean",
	Aliases: []string{"c"},
	Short:   "Delete every cached archive",
	Long: `Remove all archives from the cache directory. The next install downloads
them again, which also picks up archives changed upstream.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	c := a.cache()
	removed, err := c.Clear()
	for _, name := range removed {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", name)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached archives from %s\n", len(removed), a.project.Absolute(c.Dir()))

	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: some cache entries could not be removed:\n%v\n", err)
		return fmt.Errorf("cleaning cache: %w", err)
	}
	return nil
}
