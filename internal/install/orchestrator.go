package install

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/addonctl/addonctl/internal/archive"
	"github.com/addonctl/addonctl/internal/cache"
	"github.com/addonctl/addonctl/internal/logging"
	"github.com/addonctl/addonctl/internal/project"
	"github.com/addonctl/addonctl/internal/state"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Registry is the slice of the state store the orchestrator needs.
type Registry interface {
	Assets() []state.Asset
	SetInstallFolder(ctx context.Context, id, folder string) error
}

// Downloader fetches archive bytes by URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Orchestrator installs assets concurrently: each pending asset runs as an
// independent unit and a failure in one never affects the others.
type Orchestrator struct {
	store       Registry
	cache       *cache.Cache
	fs          afero.Fs
	downloader  Downloader
	concurrency int
	reporter    Reporter
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency caps the number of units in flight. Zero or less means
// every pending asset starts at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.concurrency = n
	}
}

// WithReporter sets the receiver of stage events.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithLogger sets the logger; each run tags it with a run_id.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an Orchestrator. fsys must be rooted at the project directory.
func New(store Registry, c *cache.Cache, fsys afero.Fs, d Downloader, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		cache:      c,
		fs:         fsys,
		downloader: d,
		reporter:   nopReporter{},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Pending returns every registered asset that is not installed: either it
// has no install folder, or the folder it maps to is gone from addons/.
func (o *Orchestrator) Pending() []state.Asset {
	var pending []state.Asset
	for _, a := range o.store.Assets() {
		if a.Installed() && o.present(a.InstallFolder) {
			continue
		}
		pending = append(pending, a)
	}
	return pending
}

func (o *Orchestrator) present(folder string) bool {
	ok, err := afero.DirExists(o.fs, project.InstallPath(folder))
	return err == nil && ok
}

// Install runs every pending asset.
func (o *Orchestrator) Install(ctx context.Context) Report {
	return o.Run(ctx, o.Pending())
}

// Run installs assets and waits for every unit to finish. The report holds
// one outcome per asset, ordered by asset id.
func (o *Orchestrator) Run(ctx context.Context, assets []state.Asset) Report {
	logger, runID := logging.WithRunID(o.logger)
	logger.Info("install run started", "assets", len(assets), "concurrency", o.concurrency)

	outcomes := make([]Outcome, len(assets))

	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, a := range assets {
		g.Go(func() error {
			// Units never return an error so one failure cannot cancel siblings.
			outcomes[i] = o.installOne(ctx, logger.With("asset_id", a.ID), a)
			return nil
		})
	}
	_ = g.Wait()

	sortOutcomes(outcomes)
	report := Report{RunID: runID, Outcomes: outcomes}
	logger.Info("install run finished", "installed", report.Installed(), "failed", report.Failed())
	return report
}

// installOne drives a single asset through fetch, locate, register and
// extract. Registration precedes extraction so the mapping is durable as soon
// as the plugin root is known.
func (o *Orchestrator) installOne(ctx context.Context, logger *slog.Logger, a state.Asset) (out Outcome) {
	out = Outcome{Asset: a, Stage: StagePending}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("install unit panicked", "panic", r, "stack", string(debug.Stack()))
			out = o.fail(logger, out, fmt.Errorf("panic: %v", r))
		}
	}()

	o.advance(&out, StageFetching)
	r, fromCache, err := o.cache.Fetch(ctx, a.ID, func(ctx context.Context) ([]byte, error) {
		return o.downloader.Download(ctx, a.DownloadURL)
	})
	if err != nil {
		return o.fail(logger, out, err)
	}
	out.FromCache = fromCache
	logger.Debug("archive ready", "from_cache", fromCache, "size", r.Size())

	o.advance(&out, StageLocating)
	root, err := archive.Locate(r.Names())
	if err != nil {
		return o.fail(logger, out, err)
	}
	out.Folder = root.Name

	o.advance(&out, StageRegistering)
	if err := o.store.SetInstallFolder(ctx, a.ID, root.Name); err != nil {
		return o.fail(logger, out, err)
	}

	o.advance(&out, StageExtracting)
	res, err := archive.Extract(o.fs, r, root)
	out.Files = res
	if err != nil {
		return o.fail(logger, out, err)
	}

	o.advance(&out, StageInstalled)
	logger.Info("asset installed",
		"folder", root.Name,
		"written", res.Written,
		"skipped", res.Skipped,
	)
	return out
}

func (o *Orchestrator) advance(out *Outcome, s Stage) {
	out.Stage = s
	o.reporter.Report(Event{
		AssetID:   out.Asset.ID,
		Title:     out.Asset.Title,
		Stage:     s,
		Folder:    out.Folder,
		FromCache: out.FromCache,
	})
}

func (o *Orchestrator) fail(logger *slog.Logger, out Outcome, err error) Outcome {
	out.Err = fmt.Errorf("asset %s (%s): %s: %w", out.Asset.ID, out.Asset.Title, out.Stage, err)
	logger.Warn("asset failed", "stage", out.Stage.String(), "err", err)
	o.reporter.Report(Event{
		AssetID:   out.Asset.ID,
		Title:     out.Asset.Title,
		Stage:     StageFailed,
		Folder:    out.Folder,
		FromCache: out.FromCache,
		Err:       out.Err,
	})
	return out
}
