package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/addonctl/addonctl/internal/project"
	"github.com/addonctl/addonctl/internal/state"
	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List registered assets",
	Long:    `List every asset in the state file with the folder it is installed to.`,
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry represents a registered asset for display.
type listEntry struct {
	ID     string `json:"asset_id"`
	Title  string `json:"title"`
	Folder string `json:"install_folder,omitempty"`
	Status string `json:"status"`
}

const (
	statusInstalled    = "installed"
	statusNotInstalled = "not installed"
	statusMissing      = "missing"
)

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.store()
	if err != nil {
		return err
	}

	entries := listEntries(store.Assets(), a.project.AddonPresent)
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No assets registered yet.")
		return nil
	}

	if listJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tFOLDER\tSTATUS")
	for _, e := range entries {
		folder := "-"
		if e.Folder != "" {
			folder = project.InstallPath(e.Folder)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Title, folder, e.Status)
	}
	return w.Flush()
}

// listEntries derives a status per asset: installed, missing when the mapped
// folder is gone, or not installed.
func listEntries(assets []state.Asset, present func(folder string) bool) []listEntry {
	entries := make([]listEntry, 0, len(assets))
	for _, as := range assets {
		e := listEntry{ID: as.ID, Title: as.Title, Folder: as.InstallFolder, Status: statusNotInstalled}
		if as.Installed() {
			e.Status = statusMissing
			if present(as.InstallFolder) {
				e.Status = statusInstalled
			}
		}
		entries = append(entries, e)
	}
	return entries
}
