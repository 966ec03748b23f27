// Package report explains merge selection decisions without extracting
// anything.
//
// A report replays the latest-version selection from archive central
// directories only: every candidate jar is listed under its package with
// the archive that supplied it, and the candidate a real merge would
// extract is marked selected. Renderings are plain text, JSON, Graphviz
// DOT, and SVG.
package report

import (
	"path/filepath"
	"sort"
	"time"

	"repomerge/pkg/archive"
	"repomerge/pkg/artifact"
	"repomerge/pkg/catalog"
	"repomerge/pkg/errors"
)

// Candidate is one jar competing for a package slot.
type Candidate struct {
	// Archive is the base name of the archive supplying the jar.
	Archive string `json:"archive"`

	// Version is the display version, empty for unversioned jars.
	Version string `json:"version,omitempty"`

	// Jar is the jar filename.
	Jar string `json:"jar"`

	// Selected marks the candidate a merge would extract.
	Selected bool `json:"selected"`
}

// Package groups the candidates for one package name. Candidates are in
// selection order: ascending by version key, ties kept in archive order,
// so the last candidate is always the selected one.
type Package struct {
	Name       string      `json:"package"`
	Candidates []Candidate `json:"candidates"`
}

// Winner returns the selected candidate.
func (p Package) Winner() Candidate {
	return p.Candidates[len(p.Candidates)-1]
}

// Report is the full selection outcome across a set of archives.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Suffix      string    `json:"suffix"`
	Archives    []string  `json:"archives"`
	Packages    []Package `json:"packages"`
}

// Build scans the archives' central directories and replays selection.
// Archives are considered in the order given; a version tie is won by the
// later archive, matching merge behavior.
func Build(archives []string, suffix string) (*Report, error) {
	return BuildNamed(archives, nil, suffix)
}

// BuildNamed is [Build] with display names parallel to archives, used when
// the local paths are downloaded temp files and the report should show the
// original references instead.
func BuildNamed(archives, displayNames []string, suffix string) (*Report, error) {
	if len(archives) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "at least one input archive is required")
	}
	if len(displayNames) != 0 && len(displayNames) != len(archives) {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"got %d display names for %d archives", len(displayNames), len(archives))
	}
	if suffix == "" {
		suffix = archive.DefaultSuffix
	}

	type candidate struct {
		entry artifact.Entry
		from  string
	}
	groups := make(map[string][]candidate)
	names := make([]string, 0, len(archives))

	for i, path := range archives {
		cat, err := catalog.Scan(path, suffix)
		if err != nil {
			return nil, err
		}
		name := filepath.Base(path)
		if i < len(displayNames) {
			name = displayNames[i]
		}
		names = append(names, name)
		for _, pkg := range cat.Packages {
			for _, v := range pkg.Versions {
				groups[pkg.Name] = append(groups[pkg.Name], candidate{entry: v, from: name})
			}
		}
	}

	rep := &Report{
		GeneratedAt: time.Now().UTC(),
		Suffix:      suffix,
		Archives:    names,
		Packages:    make([]Package, 0, len(groups)),
	}

	packageNames := make([]string, 0, len(groups))
	for name := range groups {
		packageNames = append(packageNames, name)
	}
	sort.Strings(packageNames)

	for _, name := range packageNames {
		group := groups[name]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].entry.Key.Less(group[j].entry.Key)
		})

		pkg := Package{Name: name, Candidates: make([]Candidate, 0, len(group))}
		for i, c := range group {
			pkg.Candidates = append(pkg.Candidates, Candidate{
				Archive:  c.from,
				Version:  c.entry.DisplayVersion(),
				Jar:      c.entry.Basename(),
				Selected: i == len(group)-1,
			})
		}
		rep.Packages = append(rep.Packages, pkg)
	}

	return rep, nil
}
