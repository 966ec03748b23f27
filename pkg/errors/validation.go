package errors

import (
	"os"
	"strings"
)

// ValidateArchivePath validates that path names a usable input archive:
// it must exist, be a regular file, and be readable. These checks run
// before any extraction so a bad argument fails as a usage error with no
// side effects.
func ValidateArchivePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "archive path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return New(ErrCodeFileNotFound, "input archive does not exist: %s", path)
	}
	if err != nil {
		return Wrap(ErrCodeInvalidArchive, err, "stat %s", path)
	}
	if !info.Mode().IsRegular() {
		return New(ErrCodeInvalidArchive, "not a regular file: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return Wrap(ErrCodeInvalidArchive, err, "archive is not readable: %s", path)
	}
	_ = f.Close()

	return nil
}

// ValidateOutputDir validates an output directory argument. The directory
// need not exist yet (it is created on demand), but an existing path must
// be a directory.
func ValidateOutputDir(dir string) error {
	if dir == "" {
		return New(ErrCodeInvalidInput, "output directory is required")
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "stat %s", dir)
	}
	if !info.IsDir() {
		return New(ErrCodeInvalidInput, "output path exists and is not a directory: %s", dir)
	}
	return nil
}

// ValidateRef validates an archive reference. Plain paths are always
// accepted here (their existence is checked by [ValidateArchivePath] once
// resolved); URL-style references must use a supported scheme.
func ValidateRef(ref string) error {
	if ref == "" {
		return New(ErrCodeInvalidRef, "archive reference cannot be empty")
	}
	if strings.Contains(ref, "\x00") {
		return New(ErrCodeInvalidRef, "archive reference contains invalid characters")
	}

	i := strings.Index(ref, "://")
	if i < 0 {
		return nil
	}
	switch ref[:i] {
	case "http", "https", "s3":
		return nil
	}
	return New(ErrCodeInvalidRef, "unsupported archive scheme: %q (use http, https, or s3)", ref[:i])
}

// ValidateSuffix validates the sources-jar filename suffix used to select
// archive members. It must be a bare filename fragment, not a path.
func ValidateSuffix(suffix string) error {
	if suffix == "" {
		return New(ErrCodeInvalidConfig, "jar suffix cannot be empty")
	}
	if strings.ContainsAny(suffix, "/\\") {
		return New(ErrCodeInvalidConfig, "jar suffix cannot contain path separators: %q", suffix)
	}
	return nil
}
