package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/addonctl/addonctl/internal/errs"
)

// ErrConsumed is returned when a Reader's entries are walked a second time.
var ErrConsumed = errors.New("archive entries already consumed")

// Entry is a single path inside an archive plus access to its bytes.
type Entry struct {
	// Name is the slash-separated path inside the archive.
	Name string
	file *zip.File
}

// IsDir reports whether the entry is a directory marker.
func (e Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/") || e.file.FileInfo().IsDir()
}

// IsRegular reports whether the entry is a plain file (not a directory or symlink).
func (e Entry) IsRegular() bool {
	return e.file.Mode().IsRegular()
}

// Open returns a stream over the entry's contents.
func (e Entry) Open() (io.ReadCloser, error) {
	return e.file.Open()
}

// Reader is a one-shot, ordered view of a zip archive's entries. Each
// concurrent install unit gets its own Reader; a Reader is not safe for
// concurrent use and its entries can be walked once.
type Reader struct {
	zr       *zip.Reader
	size     int64
	consumed bool
}

// NewReader parses data as a zip archive.
func NewReader(data []byte) (*Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	// Insecure names are rejected per entry by Extract, not for the whole archive.
	if errors.Is(err, zip.ErrInsecurePath) && zr != nil {
		err = nil
	}
	if err != nil {
		return nil, errs.E(errs.KindIO, "reading zip archive", err)
	}
	return &Reader{zr: zr, size: int64(len(data))}, nil
}

// Size returns the archive's size in bytes.
func (r *Reader) Size() int64 { return r.size }

// Names returns every entry name in archive order, with backslashes
// normalised to forward slashes. Listing names does not consume the Reader.
func (r *Reader) Names() []string {
	names := make([]string, len(r.zr.File))
	for i, f := range r.zr.File {
		names[i] = normalize(f.Name)
	}
	return names
}

// Walk calls fn for each entry in archive order. It stops at the first
// error fn returns. A Reader can be walked only once.
func (r *Reader) Walk(fn func(Entry) error) error {
	if r.consumed {
		return ErrConsumed
	}
	r.consumed = true

	for _, f := range r.zr.File {
		if err := fn(Entry{Name: normalize(f.Name), file: f}); err != nil {
			return err
		}
	}
	return nil
}

func normalize(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}
