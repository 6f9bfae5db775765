package archive

import (
	"fmt"
	"strings"

	"github.com/addonctl/addonctl/internal/branding"
	"github.com/addonctl/addonctl/internal/errs"
)

// Marker is the directory name every addon lives under, both inside an
// archive and in a Godot project.
const Marker = "addons"

// PluginRoot identifies where an addon's payload begins inside an archive.
type PluginRoot struct {
	// Name is the addon folder name, the component after the marker.
	Name string
	// Prefix is the archive path up to and including Name,
	// e.g. "MyAddon-main/addons/cool_plugin".
	Prefix string
	// Strip is the part of Prefix before the marker ("" or "MyAddon-main/").
	Strip string
}

// validName rejects the empty component of "addons/", the dot segments a
// crafted archive could use to name a folder outside the addons directory,
// and the names the tool keeps for its own cache, state and ignore files.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !branding.IsManagedName(name)
}

// OutDir returns the project-relative directory the addon installs into.
func (p PluginRoot) OutDir() string {
	return Marker + "/" + p.Name
}

// StructureError reports an archive with no addons marker at the first or
// second path position of any entry.
type StructureError struct {
	Entries int
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("no %q folder found in the first two levels of %d archive entries", Marker, e.Entries)
}

// Locate finds the addon root among names. The first entry (in archive
// order) whose first or second path component is the marker and which names
// a directory after it wins. A file directly under the marker is not an
// addon and scanning continues. Names are not sorted.
func Locate(names []string) (PluginRoot, error) {
	for _, name := range names {
		parts := strings.Split(normalize(name), "/")
		// pos+2 < len(parts): the plugin name is followed by another
		// component, or by "" for a directory entry.
		for pos := 0; pos <= 1 && pos+2 < len(parts); pos++ {
			if parts[pos] != Marker || !validName(parts[pos+1]) {
				continue
			}
			strip := ""
			if pos == 1 {
				strip = parts[0] + "/"
			}
			return PluginRoot{
				Name:   parts[pos+1],
				Prefix: strings.Join(parts[:pos+2], "/"),
				Strip:  strip,
			}, nil
		}
	}
	return PluginRoot{}, errs.E(errs.KindStructural, "locating addon root", &StructureError{Entries: len(names)})
}
