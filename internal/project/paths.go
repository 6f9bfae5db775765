package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/addonctl/addonctl/internal/branding"
	"github.com/spf13/afero"
)

// Directory and file name constants for a Godot project.
const (
	AddonsDir     = "addons"
	ProjectFile   = "project.godot"
	GitignoreFile = branding.GitignoreFile
)

// Project is a Godot project on disk. All paths it returns are relative to
// Root and meant for use with FS, which refuses to reach outside Root.
type Project struct {
	Root string
	FS   afero.Fs
}

// Open returns a Project rooted at root on the OS filesystem.
func Open(root string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("opening project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", abs)
	}
	return &Project{Root: abs, FS: afero.NewBasePathFs(afero.NewOsFs(), abs)}, nil
}

// New wraps an existing filesystem, typically an in-memory one in tests.
func New(root string, fsys afero.Fs) *Project {
	return &Project{Root: root, FS: fsys}
}

// ResolveRoot picks the project directory: the explicit flag value first,
// then the ADDONCTL_PROJECT environment variable, then the working directory.
func ResolveRoot(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(branding.EnvVar("PROJECT")); v != "" {
		return v, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return cwd, nil
}

// StatePath returns the state file path (addons/addonctl.toml).
func StatePath() string {
	return filepath.Join(AddonsDir, branding.StateFileName())
}

// CacheDir returns the archive cache directory (addons/.addonctl).
func CacheDir() string {
	return filepath.Join(AddonsDir, branding.HomeDir())
}

// GitignorePath returns the path to addons/.gitignore.
func GitignorePath() string {
	return filepath.Join(AddonsDir, GitignoreFile)
}

// InstallPath returns the directory an addon folder occupies.
func InstallPath(folder string) string {
	return filepath.Join(AddonsDir, folder)
}

// Absolute joins a project-relative path onto Root for display.
func (p *Project) Absolute(rel string) string {
	return filepath.Join(p.Root, rel)
}
