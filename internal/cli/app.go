package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/addonctl/addonctl/internal/branding"
	"github.com/addonctl/addonctl/internal/cache"
	"github.com/addonctl/addonctl/internal/config"
	"github.com/addonctl/addonctl/internal/library"
	"github.com/addonctl/addonctl/internal/logging"
	"github.com/addonctl/addonctl/internal/project"
	"github.com/addonctl/addonctl/internal/state"
	"github.com/spf13/cobra"
)

// app bundles what a project-scoped command needs.
type app struct {
	settings config.Settings
	logger   *slog.Logger
	project  *project.Project
	library  *library.Client
}

func newApp(cmd *cobra.Command) (*app, error) {
	settings, err := config.Current()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		settings.LogLevel = logLevel
	}
	if logFormat != "" {
		settings.LogFormat = logFormat
	}
	logger := logging.New(cmd.ErrOrStderr(), settings.LogLevel, settings.LogFormat)

	root, err := project.ResolveRoot(projectDir)
	if err != nil {
		return nil, err
	}
	p, err := project.Open(root)
	if err != nil {
		return nil, err
	}

	client := library.New(
		library.WithBaseURL(settings.LibraryURL),
		library.WithRetries(settings.Retries),
		library.WithUserAgent(branding.CLIName()+"/"+buildVersion),
		library.WithLogger(logger),
	)

	logger.Debug("project opened", "root", p.Root, "library", client.BaseURL())
	return &app{settings: settings, logger: logger, project: p, library: client}, nil
}

// store opens the state file, turning a missing one into a hint to run init.
func (a *app) store() (*state.Store, error) {
	s, err := a.project.OpenStore()
	if errors.Is(err, state.ErrNotInitialized) {
		return nil, fmt.Errorf("%s is not initialized, run '%s init' first", a.project.Root, branding.CLIName())
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a *app) cache() *cache.Cache {
	return cache.New(a.project.FS, project.CacheDir())
}
