// Package archive stages the sources jars bundled inside repository zip
// archives.
//
// Opening an archive extracts every member whose name ends with the
// configured suffix into a private scratch directory, preserving the
// member's internal path. The scratch directory lives exactly as long as
// the [Bundle]: Close removes it with everything under it and is safe to
// call more than once, so callers defer it immediately after a successful
// [Open] and no scratch survives an early return.
//
// # Scratch layout
//
// Each bundle owns <root>/repomerge-<uuid> where root defaults to
// [os.TempDir]. Member paths are sanitized before they are joined onto the
// scratch directory; absolute paths and ".." traversal abort the open.
package archive

import (
	"archive/zip"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"repomerge/pkg/artifact"
	"repomerge/pkg/errors"
)

// DefaultSuffix selects the members a bundle stages when no suffix is
// configured.
const DefaultSuffix = "sources.jar"

// Options configures how an archive is opened.
type Options struct {
	// Suffix selects the members staged into scratch storage. Defaults to
	// [DefaultSuffix].
	Suffix string

	// ScratchRoot is the parent directory for the bundle's scratch
	// directory. Defaults to os.TempDir().
	ScratchRoot string
}

// Bundle is an opened archive with its matching members staged on disk.
type Bundle struct {
	path    string
	suffix  string
	scratch string
	members int
	closed  bool
}

// Open opens the zip archive at path and stages every member whose name
// ends with opts.Suffix into a fresh scratch directory.
//
// The caller owns the returned bundle and must Close it. When Open fails
// after the scratch directory was created, the directory is removed before
// returning, so an error never leaks scratch state.
func Open(path string, opts Options) (*Bundle, error) {
	suffix := opts.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	root := opts.ScratchRoot
	if root == "" {
		root = os.TempDir()
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidArchive, err, "open archive %s", filepath.Base(path))
	}
	defer zr.Close()

	scratch := filepath.Join(root, "repomerge-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create scratch directory")
	}

	b := &Bundle{path: path, suffix: suffix, scratch: scratch}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, suffix) {
			continue
		}
		if err := b.stage(f); err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}

// stage copies one archive member into the scratch directory, preserving
// its internal path.
func (b *Bundle) stage(f *zip.File) error {
	dest, err := safeJoin(b.scratch, f.Name)
	if err != nil {
		return err
	}
	if err := writeMember(f, dest); err != nil {
		return err
	}
	b.members++
	return nil
}

// Name returns the base filename of the archive the bundle was opened from.
func (b *Bundle) Name() string {
	return filepath.Base(b.path)
}

// Members reports how many matching members were staged at open time.
func (b *Bundle) Members() int {
	return b.members
}

// ScratchDir returns the bundle's private scratch directory. It exists
// until Close is called.
func (b *Bundle) ScratchDir() string {
	return b.scratch
}

// Entries walks the scratch directory and returns one entry per staged
// sources jar, in lexical path order.
func (b *Bundle) Entries() ([]artifact.Entry, error) {
	if b.closed {
		return nil, errors.New(errors.ErrCodeInternal, "bundle is closed")
	}

	var entries []artifact.Entry
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), b.suffix) {
			return nil
		}
		entries = append(entries, artifact.Parse(path))
		return nil
	}
	if err := filepath.WalkDir(b.scratch, walk); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list staged jars")
	}
	return entries, nil
}

// Close removes the scratch directory and everything under it. It is
// idempotent: the first call does the removal, later calls return nil.
func (b *Bundle) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if err := os.RemoveAll(b.scratch); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "remove scratch directory")
	}
	return nil
}
