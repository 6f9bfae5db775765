package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/addonctl/addonctl/internal/branding"
	"github.com/spf13/afero"
)

// gitignoreLines keeps installed addons and the cache out of version control
// while tracking the ignore file and the state file.
func gitignoreLines() []string {
	return []string{
		"*",
		"!" + GitignoreFile,
		"!" + branding.StateFileName(),
		branding.HomeDir(),
	}
}

// EnsureGitignore appends any missing managed lines to addons/.gitignore.
// Lines already present are left alone, so this is safe to re-run.
func (p *Project) EnsureGitignore() error {
	path := GitignorePath()

	content, err := afero.ReadFile(p.FS, path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	present := make(map[string]bool)
	for _, l := range strings.Split(string(content), "\n") {
		present[strings.TrimSpace(l)] = true
	}

	var missing []string
	for _, line := range gitignoreLines() {
		if !present[line] {
			missing = append(missing, line)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	// Ensure there's a newline before our addition.
	suffix := strings.Join(missing, "\n") + "\n"
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		suffix = "\n" + suffix
	}

	if err := p.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	f, err := p.FS.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(suffix); err != nil {
		return fmt.Errorf("writing to %s: %w", path, err)
	}
	return nil
}
