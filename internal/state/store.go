package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/addonctl/addonctl/internal/branding"
	"github.com/addonctl/addonctl/internal/errs"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// Store is the single source of truth for known assets and their install
// folders. It is write-through: every mutation is persisted before the
// mutating call returns, and a failed save rolls the mutation back.
// All access is serialised by one gate; the save happens while holding it.
type Store struct {
	fs      afero.Fs
	path    string
	gate    chan struct{}
	doc     Document
	version *semver.Version
}

// Open loads the state file at path.
func Open(fsys afero.Fs, path string) (*Store, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.E(errs.KindNotFound, "opening "+path, ErrNotInitialized)
	}
	if err != nil {
		return nil, errs.E(errs.KindIO, "opening "+path, err)
	}

	issues, err := Validate(data)
	if err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	if len(issues) > 0 {
		return nil, &CorruptError{Path: path, Issues: issues}
	}

	var doc Document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	if doc.Assets == nil {
		doc.Assets = []Asset{}
	}

	seen := make(map[string]bool, len(doc.Assets))
	for _, a := range doc.Assets {
		if seen[a.ID] {
			return nil, &CorruptError{Path: path, Issues: []string{fmt.Sprintf("asset %s is listed more than once", a.ID)}}
		}
		seen[a.ID] = true
	}

	v, err := semver.NewVersion(doc.GodotVersion)
	if err != nil {
		return nil, &CorruptError{Path: path, Err: fmt.Errorf("godot_version %q: %w", doc.GodotVersion, err)}
	}

	return newStore(fsys, path, doc, v), nil
}

// Create writes a fresh state file recording godotVersion. It fails if the
// file already exists.
func Create(fsys afero.Fs, path string, godotVersion *semver.Version) (*Store, error) {
	if exists, err := afero.Exists(fsys, path); err != nil {
		return nil, errs.E(errs.KindIO, "creating "+path, err)
	} else if exists {
		return nil, errs.E(errs.KindConflict, "creating "+path, ErrAlreadyInitialized)
	}

	s := newStore(fsys, path, Document{GodotVersion: godotVersion.String(), Assets: []Asset{}}, godotVersion)
	if err := s.save(); err != nil {
		return nil, errs.E(errs.KindIO, "creating "+path, err)
	}
	return s, nil
}

func newStore(fsys afero.Fs, path string, doc Document, v *semver.Version) *Store {
	return &Store{
		fs:      fsys,
		path:    path,
		gate:    make(chan struct{}, 1),
		doc:     doc,
		version: v,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// GodotVersion returns the project version recorded at init.
func (s *Store) GodotVersion() *semver.Version { return s.version }

// Assets returns a copy of every known asset in registration order.
func (s *Store) Assets() []Asset {
	s.lockBlocking()
	defer s.unlock()
	return slices.Clone(s.doc.Assets)
}

// Get returns the asset with the given id.
func (s *Store) Get(id string) (Asset, bool) {
	s.lockBlocking()
	defer s.unlock()
	if i := s.doc.index(id); i >= 0 {
		return s.doc.Assets[i], true
	}
	return Asset{}, false
}

// InstallFolder returns the folder name recorded for id, if any.
func (s *Store) InstallFolder(id string) (string, bool) {
	a, ok := s.Get(id)
	if !ok || !a.Installed() {
		return "", false
	}
	return a.InstallFolder, true
}

// Put registers a new asset. Registering an id twice is a conflict.
func (s *Store) Put(ctx context.Context, a Asset) error {
	return s.mutate(ctx, "registering asset "+a.ID, func(d *Document) error {
		if d.index(a.ID) >= 0 {
			return errs.E(errs.KindConflict, "", fmt.Errorf("%w: %s", ErrDuplicateAsset, a.ID))
		}
		d.Assets = append(d.Assets, a)
		return nil
	})
}

// Remove deletes an asset and its install mapping. Removing an unknown id
// is an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx, "removing asset "+id, func(d *Document) error {
		i := d.index(id)
		if i < 0 {
			return errs.E(errs.KindNotFound, "", fmt.Errorf("%w: %s", ErrAssetNotFound, id))
		}
		d.Assets = slices.Delete(d.Assets, i, i+1)
		return nil
	})
}

// SetInstallFolder records the folder an asset occupies under addons/.
func (s *Store) SetInstallFolder(ctx context.Context, id, folder string) error {
	if folder == "" || folder == "." || folder == ".." || filepath.Base(folder) != folder || branding.IsManagedName(folder) {
		return errs.E(errs.KindOther, "recording install folder for "+id, fmt.Errorf("invalid folder name %q", folder))
	}
	return s.mutate(ctx, "recording install folder for "+id, func(d *Document) error {
		i := d.index(id)
		if i < 0 {
			return errs.E(errs.KindNotFound, "", fmt.Errorf("%w: %s", ErrAssetNotFound, id))
		}
		d.Assets[i].InstallFolder = folder
		return nil
	})
}

// ClearInstallFolder drops the install mapping for id, keeping the asset known.
func (s *Store) ClearInstallFolder(ctx context.Context, id string) error {
	return s.mutate(ctx, "clearing install folder for "+id, func(d *Document) error {
		i := d.index(id)
		if i < 0 {
			return errs.E(errs.KindNotFound, "", fmt.Errorf("%w: %s", ErrAssetNotFound, id))
		}
		d.Assets[i].InstallFolder = ""
		return nil
	})
}

// Save persists the current document.
func (s *Store) Save(ctx context.Context) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()
	if err := s.save(); err != nil {
		return errs.E(errs.KindIO, "saving "+s.path, err)
	}
	return nil
}

func (s *Store) mutate(ctx context.Context, op string, fn func(*Document) error) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	prev := s.doc.clone()
	if err := fn(&s.doc); err != nil {
		var e *errs.Error
		if errors.As(err, &e) && e.Op == "" {
			e.Op = op
		}
		return err
	}
	if err := s.save(); err != nil {
		s.doc = prev
		return errs.E(errs.KindIO, op, err)
	}
	return nil
}

// save serialises the whole document and replaces the file atomically.
// Callers must hold the gate.
func (s *Store) save() error {
	data, err := toml.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("syncing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("closing state: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) lock(ctx context.Context) error {
	select {
	case s.gate <- struct{}{}:
		return nil
	default:
	}
	select {
	case s.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errs.E(errs.KindConcurrency, "acquiring state lock", ctx.Err())
	}
}

func (s *Store) lockBlocking() { s.gate <- struct{}{} }

func (s *Store) unlock() { <-s.gate }

func (d *Document) index(id string) int {
	return slices.IndexFunc(d.Assets, func(a Asset) bool { return a.ID == id })
}

func (d Document) clone() Document {
	d.Assets = slices.Clone(d.Assets)
	return d
}
