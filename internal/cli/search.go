package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/Masterminds/semver/v3"
	"github.com/addonctl/addonctl/internal/library"
	"github.com/spf13/cobra"
)

var (
	searchAllVersions bool
	searchJSON        bool
)

var searchCmd = &cobra.Command{
	Use:     "search <name>",
	Aliases: []string{"s"},
	Short:   "Search the asset library by name",
	Long: `Search the Godot Asset Library for assets whose title matches name.

Results are limited to the Godot version in project.godot unless
--all-versions is given or no project file is found.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchAllVersions, "all-versions", false, "Do not filter by the project's Godot version")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(searchCmd)
}

// searchEntry represents a search hit for display.
type searchEntry struct {
	ID    string `json:"asset_id"`
	Title string `json:"title"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	var version *semver.Version
	if !searchAllVersions {
		version, err = a.project.GodotVersion()
		if err != nil {
			a.logger.Debug("searching all versions", "reason", err)
			version = nil
		}
	}

	results, err := a.library.Search(cmd.Context(), args[0], version)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No assets found matching %q\n", args[0])
		return nil
	}

	if searchJSON {
		return printSearchJSON(cmd, toSearchEntries(results))
	}
	return printCandidates(cmd, results)
}

func toSearchEntries(results []library.SearchResult) []searchEntry {
	entries := make([]searchEntry, len(results))
	for i, r := range results {
		entries[i] = searchEntry{ID: string(r.ID), Title: r.Title}
	}
	return entries
}

// printCandidates writes an ID/TITLE table. It also lists the candidates of
// an ambiguous add.
func printCandidates(cmd *cobra.Command, results []library.SearchResult) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE")
	for _, r := range results {
		title := r.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\n", r.ID, title)
	}
	return w.Flush()
}

func printSearchJSON(cmd *cobra.Command, entries []searchEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
