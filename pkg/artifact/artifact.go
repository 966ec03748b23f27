// Package artifact decomposes sources-jar filenames into package identity
// and version.
//
// Repository archives bundle artifacts as "<package>-<version>-sources.jar"
// with the package portion itself free to contain hyphens and digits
// ("jboss-server-migration-wildfly13.0-server"). The split point is the
// first "-<digit>" boundary: everything before it is the package name,
// everything after the hyphen is the version string. The version string is
// kept verbatim; its numeric sort key comes from [version.Parse].
package artifact

import (
	"path"
	"path/filepath"
	"strings"

	"repomerge/pkg/version"
)

// Entry is one discovered sources jar, decomposed for latest-version
// selection. The struct supports JSON serialization for receipts, cached
// catalogs, and reports.
type Entry struct {
	// SourcePath locates the jar: a file path once extracted to scratch
	// storage, or a member path when scanned from a zip central directory.
	SourcePath string `json:"source_path"`

	// Package is the grouping key for selection: the filename up to the
	// first "-<digit>" boundary.
	Package string `json:"package"`

	// Version is the filename remainder after "<Package>-", verbatim.
	Version string `json:"version,omitempty"`

	// Key is the numeric sort key derived from Version.
	Key version.Key `json:"key,omitempty"`
}

// Parse decomposes the filename of p into an Entry.
//
// Only the last path segment participates; directories are ignored. When
// the filename contains no "-<digit>" boundary the whole filename is the
// package name and the version string is empty, which sorts before every
// real version.
func Parse(p string) Entry {
	base := path.Base(filepath.ToSlash(p))
	e := Entry{SourcePath: p, Package: base}
	if i := versionStart(base); i >= 0 {
		e.Package = base[:i]
		e.Version = base[i+1:]
	}
	e.Key = version.Parse(e.Version)
	return e
}

// versionStart returns the index of the hyphen opening the version segment,
// or -1 when the name has no "-<digit>" boundary.
func versionStart(name string) int {
	for i := 0; i+1 < len(name); i++ {
		if name[i] == '-' && name[i+1] >= '0' && name[i+1] <= '9' {
			return i
		}
	}
	return -1
}

// Basename returns the filename of SourcePath, the name under which the
// jar's contents are unpacked in the output directory.
func (e Entry) Basename() string {
	return path.Base(filepath.ToSlash(e.SourcePath))
}

// DisplayVersion returns Version with the trailing sources-jar marker
// removed, for catalog and report output. It never feeds comparisons;
// ordering always uses Key.
func (e Entry) DisplayVersion() string {
	v := strings.TrimSuffix(e.Version, ".jar")
	v = strings.TrimSuffix(v, "sources")
	return strings.TrimSuffix(v, "-")
}
