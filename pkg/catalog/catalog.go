// Package catalog builds read-only indexes of the sources jars inside
// repository archives.
//
// A catalog is computed from the zip central directory alone. Nothing is
// extracted and no scratch storage is touched, which keeps catalogs cheap
// enough for interactive inspection and diffing. Member names go through
// the same decomposition as the merge pipeline, so a catalog predicts
// exactly what a merge would consider.
package catalog

import (
	"archive/zip"
	"path/filepath"
	"sort"
	"strings"

	"repomerge/pkg/archive"
	"repomerge/pkg/artifact"
	"repomerge/pkg/errors"
)

// Catalog is the indexed content of one archive.
type Catalog struct {
	// Archive is the base filename of the scanned zip.
	Archive string `json:"archive"`

	// Suffix is the member suffix the scan matched.
	Suffix string `json:"suffix"`

	// Packages is sorted alphabetically; each package's versions are
	// sorted ascending by key.
	Packages []Package `json:"packages"`
}

// Package groups the discovered versions of one package name.
type Package struct {
	Name     string           `json:"name"`
	Versions []artifact.Entry `json:"versions"`
}

// Newest returns the version a merge would select for this package.
func (p Package) Newest() artifact.Entry {
	return p.Versions[len(p.Versions)-1]
}

// Scan reads the central directory of the zip at path and catalogs every
// member whose name ends with suffix. An empty suffix means
// [archive.DefaultSuffix].
func Scan(path, suffix string) (*Catalog, error) {
	if suffix == "" {
		suffix = archive.DefaultSuffix
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidArchive, err, "open archive %s", filepath.Base(path))
	}
	defer zr.Close()

	groups := make(map[string][]artifact.Entry)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, suffix) {
			continue
		}
		e := artifact.Parse(f.Name)
		groups[e.Package] = append(groups[e.Package], e)
	}

	c := &Catalog{Archive: filepath.Base(path), Suffix: suffix}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		versions := groups[name]
		sort.SliceStable(versions, func(i, j int) bool {
			return versions[i].Key.Less(versions[j].Key)
		})
		c.Packages = append(c.Packages, Package{Name: name, Versions: versions})
	}
	return c, nil
}

// PackageCount returns the number of distinct packages.
func (c *Catalog) PackageCount() int {
	return len(c.Packages)
}

// VersionCount returns the total number of cataloged jars.
func (c *Catalog) VersionCount() int {
	n := 0
	for _, p := range c.Packages {
		n += len(p.Versions)
	}
	return n
}

// Lines renders the catalog as canonical "package version" lines, one per
// cataloged jar, in catalog order. The unified diff works on these lines.
func (c *Catalog) Lines() []string {
	var lines []string
	for _, p := range c.Packages {
		for _, v := range p.Versions {
			line := p.Name
			if dv := v.DisplayVersion(); dv != "" {
				line += " " + dv
			}
			lines = append(lines, line)
		}
	}
	return lines
}
