package catalog

import (
	"slices"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// DiffResult describes what changed between two catalogs, package by
// package.
type DiffResult struct {
	Added   []Package `json:"added,omitempty"`
	Removed []Package `json:"removed,omitempty"`
	Changed []Change  `json:"changed,omitempty"`
}

// Change is a package present in both catalogs with different version sets.
type Change struct {
	Package string   `json:"package"`
	Old     []string `json:"old"`
	New     []string `json:"new"`
}

// Empty reports whether the two catalogs were identical.
func (d *DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Diff compares two catalogs structurally: packages only in b are added,
// packages only in a are removed, and packages in both with different
// version lists are changed.
func Diff(a, b *Catalog) *DiffResult {
	d := &DiffResult{}

	byName := make(map[string]Package, len(a.Packages))
	for _, p := range a.Packages {
		byName[p.Name] = p
	}

	inB := make(map[string]bool, len(b.Packages))
	for _, p := range b.Packages {
		inB[p.Name] = true
		old, ok := byName[p.Name]
		if !ok {
			d.Added = append(d.Added, p)
			continue
		}
		oldVersions, newVersions := displayVersions(old), displayVersions(p)
		if !slices.Equal(oldVersions, newVersions) {
			d.Changed = append(d.Changed, Change{Package: p.Name, Old: oldVersions, New: newVersions})
		}
	}
	for _, p := range a.Packages {
		if !inB[p.Name] {
			d.Removed = append(d.Removed, p)
		}
	}
	return d
}

// Unified renders the classic unified diff (---/+++ headers, @@ hunks) of
// the two catalogs' canonical lines.
func Unified(a, b *Catalog) (string, error) {
	u := difflib.UnifiedDiff{
		A:        terminateLines(a.Lines()),
		B:        terminateLines(b.Lines()),
		FromFile: a.Archive,
		ToFile:   b.Archive,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(u)
}

func displayVersions(p Package) []string {
	out := make([]string, len(p.Versions))
	for i, v := range p.Versions {
		out[i] = v.DisplayVersion()
	}
	return out
}

// terminateLines appends a newline to each line, which produces better
// unified hunks.
func terminateLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}
