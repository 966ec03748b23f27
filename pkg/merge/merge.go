// Package merge implements the repository merge pipeline.
//
// A merge takes a base repository archive plus any number of incremental
// update archives, stages every bundled sources jar, keeps only the newest
// version of each package, and unpacks those winners into an output
// directory. CLI and tests share this package so the semantics live in one
// place.
//
// # Architecture
//
// The pipeline runs three stages, strictly in order:
//
//  1. Stage: open each archive and copy its matching members into a
//     private scratch directory per archive (see [repomerge/pkg/archive]).
//  2. Select: reduce the combined entry list to one winner per package
//     ([SelectLatest]).
//  3. Extract: unpack each winner into the output directory.
//
// Scratch directories are removed on every exit path, including failures
// part-way through staging or extraction.
//
// # Usage
//
// Create a Runner and execute the merge:
//
//	runner := merge.NewRunner(logger)
//	opts := merge.Options{
//	    OutputDir: "out",
//	    Archives:  []string{"base.zip", "update-1.zip"},
//	}
//	result, err := runner.Run(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, w := range result.Winners {
//	    fmt.Println(w.Basename())
//	}
package merge

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"repomerge/pkg/archive"
	"repomerge/pkg/artifact"
	"repomerge/pkg/errors"
)

// DefaultSuffix selects which archive members participate in the merge.
const DefaultSuffix = archive.DefaultSuffix

// =============================================================================
// Options - Merge Configuration
// =============================================================================

// Options contains all configuration for a merge run.
// This struct supports JSON serialization for receipts and reports.
type Options struct {
	// OutputDir is where winning jars are unpacked. Required. Created on
	// first extraction if it does not exist.
	OutputDir string `json:"output_dir"`

	// Archives are the input zip paths in supply order: the base archive
	// first, then incremental updates. At least one is required.
	Archives []string `json:"archives"`

	// Names optionally carries display names parallel to Archives, used in
	// results, receipts, and events in place of the local base names.
	// Download commands set these to the original references so receipts
	// don't record temp file names.
	Names []string `json:"names,omitempty"`

	// Suffix selects the members considered for the merge. Defaults to
	// DefaultSuffix.
	Suffix string `json:"suffix,omitempty"`

	// ScratchRoot overrides the parent directory for per-archive scratch
	// storage. Defaults to the system temp directory.
	ScratchRoot string `json:"scratch_root,omitempty"`

	// DryRun computes the full result without creating the output
	// directory or unpacking anything.
	DryRun bool `json:"dry_run,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
	Events Events      `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Events carries optional callbacks fired as the merge progresses. The CLI
// wires these to styled stdout prints; nil callbacks are skipped.
type Events struct {
	// ArchiveOpened fires once per input archive after its members are
	// staged, with the archive's base name and staged member count.
	ArchiveOpened func(name string, members int)

	// WinnerExtracted fires once per selected jar, just before it is
	// unpacked (or in place of unpacking during a dry run).
	WinnerExtracted func(e artifact.Entry)
}

// Result contains the outputs of a merge run.
type Result struct {
	// Archives holds the base names of the inputs, in supply order.
	Archives []string `json:"archives"`

	// TotalEntries counts every staged sources jar across all archives.
	TotalEntries int `json:"total_entries"`

	// Winners are the selected entries in output order (alphabetical by
	// package).
	Winners []artifact.Entry `json:"winners"`

	// SkippedOlder counts staged entries that lost the version selection.
	SkippedOlder int `json:"skipped_older"`

	// Stats contains timing information.
	Stats Stats `json:"stats"`
}

// Stats contains merge execution timings.
type Stats struct {
	StageTime   time.Duration `json:"stage_time"`
	SelectTime  time.Duration `json:"select_time"`
	ExtractTime time.Duration `json:"extract_time"`
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// Every archive path is verified to exist, be a regular file, and be
// readable before any extraction work starts, so bad input fails the run
// without side effects. This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if err := errors.ValidateOutputDir(o.OutputDir); err != nil {
		return err
	}
	if len(o.Archives) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one input archive is required")
	}
	for _, path := range o.Archives {
		if err := errors.ValidateArchivePath(path); err != nil {
			return err
		}
	}
	if len(o.Names) != 0 && len(o.Names) != len(o.Archives) {
		return errors.New(errors.ErrCodeInvalidInput,
			"got %d display names for %d archives", len(o.Names), len(o.Archives))
	}

	if o.Suffix == "" {
		o.Suffix = DefaultSuffix
	}
	if err := errors.ValidateSuffix(o.Suffix); err != nil {
		return err
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}
