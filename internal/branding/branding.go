// Package branding provides compile-time identity values for the CLI.
//
// Forkers edit branding.yaml in this package before building; Go's
// //go:embed bakes it into the binary. Every user-visible name the tool
// writes into a project (state file, cache dir, env prefix) derives from here.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GitHubRepo  string `yaml:"github_repo"`
	LibraryURL  string `yaml:"library_url"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:     "addonctl",
			DisplayName: "addonctl",
			Description: "A minimal addon manager for Godot projects",
			HomeDir:     ".addonctl",
			EnvPrefix:   "ADDONCTL",
			GitHubRepo:  "addonctl/addonctl",
			LibraryURL:  "https://godotengine.org/asset-library/api",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "addonctl").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name used under $HOME and inside a
// project's addons directory (e.g., ".addonctl").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "ADDONCTL").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GitHubRepo returns the "owner/repo" string shown by the version command.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// LibraryURL returns the default Godot Asset Library API base URL.
func LibraryURL() string { load(); return defaults.LibraryURL }

// StateFileName returns the name of the per-project state file (e.g., "addonctl.toml").
func StateFileName() string { load(); return defaults.CLIName + ".toml" }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") → "ADDONCTL_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}

// GitignoreFile is the ignore file the tool maintains inside addons/.
const GitignoreFile = ".gitignore"

// ManagedNames returns the entries the tool itself owns directly under a
// project's addons/ directory. No addon may install into one of them.
func ManagedNames() []string {
	return []string{HomeDir(), StateFileName(), GitignoreFile}
}

// IsManagedName reports whether name collides with an entry in ManagedNames.
// The comparison ignores case so the check holds on case-insensitive
// filesystems.
func IsManagedName(name string) bool {
	for _, m := range ManagedNames() {
		if strings.EqualFold(name, m) {
			return true
		}
	}
	return false
}
