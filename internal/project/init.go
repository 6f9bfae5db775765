package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/addonctl/addonctl/internal/branding"
	"github.com/addonctl/addonctl/internal/errs"
	"github.com/addonctl/addonctl/internal/state"
	"github.com/spf13/afero"
)

// Init prepares the project for addon management: it creates addons/, the
// state file stamped with the project's Godot version, and addons/.gitignore.
// It fails with state.ErrAlreadyInitialized when a state file already exists.
func (p *Project) Init() (*state.Store, error) {
	version, err := p.GodotVersion()
	if err != nil {
		return nil, err
	}

	if err := p.FS.MkdirAll(AddonsDir, 0o755); err != nil {
		return nil, errs.E(errs.KindIO, "creating addons directory", err)
	}

	store, err := state.Create(p.FS, StatePath(), version)
	if err != nil {
		return nil, err
	}

	if err := p.EnsureGitignore(); err != nil {
		return nil, errs.E(errs.KindIO, "writing gitignore", err)
	}
	return store, nil
}

// OpenStore loads the state file for an initialized project.
func (p *Project) OpenStore() (*state.Store, error) {
	return state.Open(p.FS, StatePath())
}

// AddonPresent reports whether addons/<folder> exists as a directory.
func (p *Project) AddonPresent(folder string) bool {
	ok, err := afero.DirExists(p.FS, InstallPath(folder))
	return err == nil && ok
}

// RemoveAddon deletes addons/<folder>. The folder must be a single path
// element so removal can never escape addons/. A missing folder is not an
// error.
func (p *Project) RemoveAddon(folder string) error {
	if folder == "" || folder == "." || folder == ".." || !filepath.IsLocal(folder) || filepath.Base(folder) != folder || branding.IsManagedName(folder) {
		return errs.E(errs.KindStructural, "removing addon", fmt.Errorf("invalid install folder %q", folder))
	}
	if err := p.FS.RemoveAll(InstallPath(folder)); err != nil && !os.IsNotExist(err) {
		return errs.E(errs.KindIO, "removing addon", err)
	}
	return nil
}
