package project

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"
)

// featuresPrefix starts the project.godot line carrying the engine version,
// e.g. config/features=PackedStringArray("4.3", "Forward Plus").
const featuresPrefix = "config/features=PackedStringArray("

// ErrProjectNotFound means project.godot is missing or carries no version.
var ErrProjectNotFound = errors.New("could not find a Godot project version in project.godot")

// GodotVersion reads the engine version from project.godot.
func (p *Project) GodotVersion() (*semver.Version, error) {
	data, err := afero.ReadFile(p.FS, ProjectFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProjectNotFound, err)
	}
	return ParseGodotVersion(data)
}

// ParseGodotVersion extracts the first quoted string of the features line
// and parses it as a version. Two-part versions ("4.3") are padded to three.
func ParseGodotVersion(projectFile []byte) (*semver.Version, error) {
	scanner := bufio.NewScanner(bytes.NewReader(projectFile))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, featuresPrefix) {
			continue
		}

		rest := line[len(featuresPrefix):]
		start := strings.IndexByte(rest, '"')
		if start < 0 {
			return nil, ErrProjectNotFound
		}
		end := strings.IndexByte(rest[start+1:], '"')
		if end < 0 {
			return nil, ErrProjectNotFound
		}
		raw := rest[start+1 : start+1+end]
		if strings.Count(raw, ".") == 1 {
			raw += ".0"
		}

		v, err := semver.StrictNewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing Godot version %q: %w", raw, err)
		}
		return v, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading project.godot: %w", err)
	}
	return nil, ErrProjectNotFound
}

// LibraryVersion formats v the way the asset library filters by engine
// version ("4.3").
func LibraryVersion(v *semver.Version) string {
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}
