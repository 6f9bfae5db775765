package state

import (
	"errors"
	"fmt"
)

// Asset is one addon known to the project. InstallFolder is empty until the
// first successful locate; it names the folder under addons/ the asset occupies.
type Asset struct {
	ID            string `toml:"asset_id" json:"asset_id"`
	Title         string `toml:"title" json:"title"`
	DownloadURL   string `toml:"download_url" json:"download_url"`
	InstallFolder string `toml:"install_folder,omitempty" json:"install_folder,omitempty"`
}

// Installed reports whether the asset has an install mapping.
func (a Asset) Installed() bool { return a.InstallFolder != "" }

// Document is the on-disk shape of the state file.
type Document struct {
	GodotVersion string  `toml:"godot_version"`
	Assets       []Asset `toml:"assets"`
}

var (
	// ErrNotInitialized is returned by Open when the state file is missing.
	ErrNotInitialized = errors.New("no configuration found; ensure the project is initialized")
	// ErrAlreadyInitialized is returned by Create when the state file exists.
	ErrAlreadyInitialized = errors.New("project is already initialized")
	// ErrAssetNotFound is returned for operations on an unknown asset id.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrDuplicateAsset is returned by Put for an id that is already registered.
	ErrDuplicateAsset = errors.New("asset already registered")
)

// CorruptError reports a state file that cannot be parsed or fails validation.
type CorruptError struct {
	Path   string
	Issues []string
	Err    error
}

func (e *CorruptError) Error() string {
	msg := fmt.Sprintf("configuration %s is invalid", e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	for _, issue := range e.Issues {
		msg += "\n  - " + issue
	}
	return msg
}

func (e *CorruptError) Unwrap() error { return e.Err }
