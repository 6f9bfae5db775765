package cli

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/addonctl/addonctl/internal/install"
	"github.com/addonctl/addonctl/internal/state"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var installConcurrency int

var installCmd = &cobra.Command{
	Use:     "install [id...]",
	Aliases: []string{"i"},
	Short:   "Install every registered asset that is not yet installed",
	Long: `Install registered assets into addons/.

Ids given as arguments are registered first if they are not known yet. Every
asset whose install folder is missing is then fetched (from the cache when
possible), located, registered, and extracted. Assets install concurrently and
a failure in one does not stop the others.`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().IntVarP(&installConcurrency, "concurrency", "j", 0, "Maximum simultaneous installs, 0 for no limit (default from config)")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.store()
	if err != nil {
		return err
	}

	// A bad id is reported and skipped; the rest of the batch still runs.
	var unregistered int
	for _, id := range args {
		if _, ok := store.Get(id); ok {
			continue
		}
		if err := registerAsset(cmd, a, store, id); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %v\n", id, err)
			unregistered++
		}
	}

	concurrency := a.settings.Concurrency
	if cmd.Flags().Changed("concurrency") {
		concurrency = installConcurrency
	}

	orch := install.New(store, a.cache(), a.project.FS, a.library,
		install.WithConcurrency(concurrency),
		install.WithReporter(newProgressReporter(cmd.ErrOrStderr())),
		install.WithLogger(a.logger),
	)

	pending := orch.Pending()
	if len(pending) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to install, all assets are installed.")
		return registrationError(unregistered, len(args))
	}

	report := orch.Run(cmd.Context(), pending)
	printReport(cmd.OutOrStdout(), report)

	if report.Failed() > 0 {
		return fmt.Errorf("%d of %d assets failed to install", report.Failed(), len(report.Outcomes))
	}
	return registrationError(unregistered, len(args))
}

func registerAsset(cmd *cobra.Command, a *app, store *state.Store, id string) error {
	asset, err := a.library.Asset(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("registering %s: %w", id, err)
	}
	if err := store.Put(cmd.Context(), asset); err != nil && !errors.Is(err, state.ErrDuplicateAsset) {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", asset.ID, asset.Title)
	return nil
}

func registrationError(failed, total int) error {
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d ids could not be registered", failed, total)
}

// progressReporter prints a line when a unit starts fetching. Units run
// concurrently, so writes are serialised.
type progressReporter struct {
	mu sync.Mutex
	w  io.Writer
}

func newProgressReporter(w io.Writer) *progressReporter {
	return &progressReporter{w: w}
}

func (p *progressReporter) Report(e install.Event) {
	if e.Stage != install.StageFetching {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "Fetching %s (%s)...\n", e.AssetID, e.Title)
}

func printReport(w io.Writer, report install.Report) {
	for _, o := range report.Outcomes {
		if o.Failed() {
			fmt.Fprintf(w, "✗ %s (%s): %v\n", o.Asset.ID, o.Asset.Title, o.Err)
			continue
		}
		source := "downloaded"
		if o.FromCache {
			source = "cached"
		}
		fmt.Fprintf(w, "✓ %s (%s) → addons/%s, %d files, %s, %s\n",
			o.Asset.ID, o.Asset.Title, o.Folder, o.Files.Written,
			humanize.Bytes(uint64(o.Files.Bytes)), source)
	}
	fmt.Fprintf(w, "\nInstalled %d, failed %d\n", report.Installed(), report.Failed())
}
