// Package cache stores downloaded addon archives on local disk, one raw zip
// blob per asset id. Entries are keyed by asset id alone: there is no content
// hashing and no invalidation, so an archive changed upstream under the same
// id keeps being served from the cache until Clear is called.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/addonctl/addonctl/internal/archive"
	"github.com/addonctl/addonctl/internal/errs"
	"github.com/spf13/afero"
)

// Extension is appended to the asset id to form the blob file name.
const Extension = ".zip"

var (
	// ErrNotFound is returned by Get when no blob exists for an id.
	ErrNotFound = errors.New("archive not cached")
	// ErrInvalidID is returned for ids that are not a single path element.
	ErrInvalidID = errors.New("invalid asset id for cache key")
)

// DownloadFunc fetches the raw archive bytes on a cache miss.
type DownloadFunc func(ctx context.Context) ([]byte, error)

// Cache is a directory of archive blobs. Concurrent use for different ids is
// safe; Clear must not run alongside fetches.
type Cache struct {
	fs  afero.Fs
	dir string
}

// New returns a Cache rooted at dir on fsys.
func New(fsys afero.Fs, dir string) *Cache {
	return &Cache{fs: fsys, dir: dir}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Path returns the blob path for id.
func (c *Cache) Path(id string) string {
	return filepath.Join(c.dir, id+Extension)
}

// Has reports whether a blob exists for id.
func (c *Cache) Has(id string) bool {
	if validateID(id) != nil {
		return false
	}
	ok, err := afero.Exists(c.fs, c.Path(id))
	return err == nil && ok
}

// Get opens the cached archive for id. Each call returns a fresh Reader.
func (c *Cache) Get(id string) (*archive.Reader, error) {
	op := "cache get " + id
	if err := validateID(id); err != nil {
		return nil, errs.E(errs.KindNotFound, op, err)
	}

	data, err := afero.ReadFile(c.fs, c.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.E(errs.KindNotFound, op, ErrNotFound)
	}
	if err != nil {
		return nil, errs.E(errs.KindIO, op, err)
	}

	r, err := archive.NewReader(data)
	if err != nil {
		return nil, fmt.Errorf("%s (run clean to drop the cached copy): %w", op, err)
	}
	return r, nil
}

// Put stores data as the blob for id. The blob is written to a temporary
// file and renamed into place so readers never observe a partial archive.
func (c *Cache) Put(id string, data []byte) error {
	op := "cache put " + id
	if err := validateID(id); err != nil {
		return errs.E(errs.KindIO, op, err)
	}

	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return errs.E(errs.KindIO, op, err)
	}

	tmp, err := afero.TempFile(c.fs, c.dir, id+".*.tmp")
	if err != nil {
		return errs.E(errs.KindIO, op, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = c.fs.Remove(tmpName)
		return errs.E(errs.KindIO, op, err)
	}
	if err := tmp.Close(); err != nil {
		_ = c.fs.Remove(tmpName)
		return errs.E(errs.KindIO, op, err)
	}
	if err := c.fs.Rename(tmpName, c.Path(id)); err != nil {
		_ = c.fs.Remove(tmpName)
		return errs.E(errs.KindIO, op, err)
	}
	return nil
}

// Fetch returns the archive for id, downloading and storing it first on a
// cache miss. The bool reports whether the archive came from the cache.
func (c *Cache) Fetch(ctx context.Context, id string, download DownloadFunc) (*archive.Reader, bool, error) {
	r, err := c.Get(id)
	if err == nil {
		return r, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	data, err := download(ctx)
	if err != nil {
		return nil, false, errs.E(errs.KindIO, "downloading "+id, err)
	}
	if err := c.Put(id, data); err != nil {
		return nil, false, err
	}

	r, err = archive.NewReader(data)
	if err != nil {
		return nil, false, fmt.Errorf("downloaded archive for %s: %w", id, err)
	}
	return r, false, nil
}

// Clear removes every entry in the cache directory. A failure on one entry
// does not stop the others; all failures are joined into the returned error.
// It returns the names of the removed entries.
func (c *Cache) Clear() ([]string, error) {
	entries, err := afero.ReadDir(c.fs, c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.E(errs.KindIO, "reading cache directory", err)
	}

	var (
		removed  []string
		failures []error
	)
	for _, entry := range entries {
		p := filepath.Join(c.dir, entry.Name())
		var rmErr error
		if entry.IsDir() {
			rmErr = c.fs.RemoveAll(p)
		} else {
			rmErr = c.fs.Remove(p)
		}
		if rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			failures = append(failures, errs.E(errs.KindIO, "removing "+entry.Name(), rmErr))
			continue
		}
		removed = append(removed, entry.Name())
	}
	return removed, errors.Join(failures...)
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
