package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/addonctl/addonctl/internal/errs"
	"github.com/spf13/afero"
)

// ErrUnsafePath is wrapped by PathError.
var ErrUnsafePath = errors.New("path escapes the addon directory")

// PathError reports an archive entry whose output path would land outside
// the addon's directory in the project.
type PathError struct {
	Entry string
	Path  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("entry %q resolves to %q: %v", e.Entry, e.Path, ErrUnsafePath)
}

func (e *PathError) Unwrap() error { return ErrUnsafePath }

// Result summarises an extraction.
type Result struct {
	Written int   // files created
	Skipped int   // files left alone because they already existed
	Dirs    int   // directory entries materialised
	Bytes   int64 // bytes written
}

// Extract writes the entries under root into fsys, which must be rooted at
// the project directory. Entries outside root.Prefix are ignored. Output
// paths are rebased to start at the addons marker, existing files are never
// overwritten, and any entry resolving outside the addon's directory fails
// the extraction. Files written before a failure are left in place.
func Extract(fsys afero.Fs, r *Reader, root PluginRoot) (Result, error) {
	var res Result

	err := r.Walk(func(e Entry) error {
		if e.Name != root.Prefix && !strings.HasPrefix(e.Name, root.Prefix+"/") {
			return nil
		}

		out, err := OutPath(e.Name, root)
		if err != nil {
			return err
		}

		if e.IsDir() {
			if err := fsys.MkdirAll(out, 0o755); err != nil {
				return errs.E(errs.KindIO, "creating "+out, err)
			}
			res.Dirs++
			return nil
		}
		// Symlinks and other special entries carry no addon payload.
		if !e.IsRegular() {
			return nil
		}

		written, n, err := writeEntry(fsys, e, out)
		if err != nil {
			return err
		}
		if written {
			res.Written++
			res.Bytes += n
		} else {
			res.Skipped++
		}
		return nil
	})
	return res, err
}

// OutPath maps an archive entry to its project-relative output path, e.g.
// "MyAddon-main/addons/cool_plugin/main.gd" → "addons/cool_plugin/main.gd".
func OutPath(name string, root PluginRoot) (string, error) {
	rel := path.Clean(strings.TrimPrefix(normalize(name), root.Strip))
	dir := root.OutDir()

	if rel != dir && !strings.HasPrefix(rel, dir+"/") {
		return "", errs.E(errs.KindStructural, "extracting", &PathError{Entry: name, Path: rel})
	}
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", errs.E(errs.KindStructural, "extracting", &PathError{Entry: name, Path: rel})
	}
	return filepath.FromSlash(rel), nil
}

func writeEntry(fsys afero.Fs, e Entry, out string) (bool, int64, error) {
	if _, err := fsys.Stat(out); err == nil {
		return false, 0, nil
	}

	if err := fsys.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return false, 0, errs.E(errs.KindIO, "creating parent of "+out, err)
	}

	perm := e.file.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}

	f, err := fsys.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if errors.Is(err, fs.ErrExist) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, errs.E(errs.KindIO, "creating "+out, err)
	}

	rc, err := e.Open()
	if err != nil {
		f.Close()
		_ = fsys.Remove(out)
		return false, 0, errs.E(errs.KindIO, "opening "+e.Name, err)
	}
	defer rc.Close()

	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// A truncated file would be skipped as "already there" on retry.
		_ = fsys.Remove(out)
		return false, 0, errs.E(errs.KindIO, "writing "+out, err)
	}
	return true, n, nil
}
