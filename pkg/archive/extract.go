package archive

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"repomerge/pkg/errors"
)

// ExtractJar unpacks the jar at jarPath into targetDir/<basename>/, where
// basename is the jar's own filename. Member paths go through the same
// sanitization as bundle staging.
func ExtractJar(jarPath, targetDir string) error {
	zr, err := zip.OpenReader(jarPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArchive, err, "open jar %s", filepath.Base(jarPath))
	}
	defer zr.Close()

	root := filepath.Join(targetDir, filepath.Base(jarPath))
	if err := os.MkdirAll(root, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeExtract, err, "create %s", root)
	}

	for _, f := range zr.File {
		dest, err := safeJoin(root, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeExtract, err, "create directory %s", f.Name)
			}
			continue
		}
		if err := writeMember(f, dest); err != nil {
			return err
		}
	}
	return nil
}

// writeMember copies a single zip member to dest, creating parent
// directories as needed.
func writeMember(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeExtract, err, "create directory for %s", f.Name)
	}

	rc, err := f.Open()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArchive, err, "read member %s", f.Name)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(errors.ErrCodeExtract, err, "create %s", filepath.Base(dest))
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return errors.Wrap(errors.ErrCodeExtract, err, "extract %s", f.Name)
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeExtract, err, "extract %s", f.Name)
	}
	return nil
}

// safeJoin joins a zip member name onto root, rejecting absolute paths and
// ".." traversal so no member can write outside the extraction root.
func safeJoin(root, name string) (string, error) {
	clean := path.Clean(filepath.ToSlash(name))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.New(errors.ErrCodeInvalidArchive, "unsafe member path %q", name)
	}

	dest := filepath.Join(root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New(errors.ErrCodeInvalidArchive, "unsafe member path %q", name)
	}
	return dest, nil
}
