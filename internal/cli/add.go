package cli

import (
	"errors"
	"fmt"

	"github.com/addonctl/addonctl/internal/library"
	"github.com/addonctl/addonctl/internal/state"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <name-or-id>...",
	Short: "Register assets without installing them",
	Long: `Register one or more assets in the project's state file.

Numeric arguments are looked up as asset ids. Anything else is searched by
name for the project's Godot version and must match exactly one asset.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.store()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, arg := range args {
		asset, err := lookupAsset(cmd, a, store, arg)
		if err == nil {
			err = store.Put(cmd.Context(), asset)
		}

		var amb *library.AmbiguousError
		switch {
		case err == nil:
			fmt.Fprintf(out, "Added %s (%s)\n", asset.ID, asset.Title)
		case errors.Is(err, state.ErrDuplicateAsset):
			fmt.Fprintf(out, "Already added: %s (%s)\n", asset.ID, asset.Title)
		case errors.As(err, &amb):
			failed++
			fmt.Fprintf(out, "%q matches several assets, add one by id:\n", amb.Name)
			printCandidates(cmd, amb.Candidates)
		default:
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not add %s: %v\n", arg, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d assets could not be added", failed, len(args))
	}
	return nil
}

// lookupAsset resolves arg as an id when numeric, otherwise by name.
func lookupAsset(cmd *cobra.Command, a *app, store *state.Store, arg string) (state.Asset, error) {
	if library.ValidateID(arg) == nil {
		return a.library.Asset(cmd.Context(), arg)
	}
	return a.library.Resolve(cmd.Context(), arg, store.GodotVersion())
}
