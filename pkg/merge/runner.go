package merge

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"repomerge/pkg/archive"
	"repomerge/pkg/artifact"
	"repomerge/pkg/errors"
)

// Runner executes merge runs.
//
// The Runner is stateless except for the logger - it doesn't store run
// results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner. If logger is nil, the default logger is used.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// Run executes the complete stage → select → extract pipeline.
//
// Every opened archive's scratch directory is removed before Run returns,
// on success and on every error path. Context cancellation is honored
// between archives and between extractions.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{}

	// Stage 1: open and stage every archive. Each bundle's Close is
	// deferred immediately after a successful open, so scratch storage is
	// reclaimed on every exit path.
	stageStart := time.Now()
	var entries []artifact.Entry
	for i, path := range opts.Archives {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b, err := archive.Open(path, archive.Options{
			Suffix:      opts.Suffix,
			ScratchRoot: opts.ScratchRoot,
		})
		if err != nil {
			return nil, err
		}
		defer b.Close()

		name := b.Name()
		if i < len(opts.Names) {
			name = opts.Names[i]
		}

		if opts.Events.ArchiveOpened != nil {
			opts.Events.ArchiveOpened(name, b.Members())
		}

		found, err := b.Entries()
		if err != nil {
			return nil, err
		}
		entries = append(entries, found...)
		result.Archives = append(result.Archives, name)

		r.Logger.Debug("staged archive", "archive", name, "jars", b.Members())
	}
	result.TotalEntries = len(entries)
	result.Stats.StageTime = time.Since(stageStart)

	r.Logger.Info("staged archives",
		"archives", len(result.Archives),
		"jars", result.TotalEntries,
		"duration", result.Stats.StageTime)

	// Stage 2: select the newest version of each package.
	selectStart := time.Now()
	result.Winners = SelectLatest(entries)
	result.SkippedOlder = result.TotalEntries - len(result.Winners)
	result.Stats.SelectTime = time.Since(selectStart)

	r.Logger.Info("selected winners",
		"packages", len(result.Winners),
		"skipped", result.SkippedOlder,
		"duration", result.Stats.SelectTime)

	// Stage 3: extract each winner into the output directory.
	extractStart := time.Now()
	if !opts.DryRun {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeExtract, err, "create output directory")
		}
	}
	for _, w := range result.Winners {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.Events.WinnerExtracted != nil {
			opts.Events.WinnerExtracted(w)
		}
		if opts.DryRun {
			continue
		}
		if err := archive.ExtractJar(w.SourcePath, opts.OutputDir); err != nil {
			return nil, err
		}
	}
	result.Stats.ExtractTime = time.Since(extractStart)

	if !opts.DryRun {
		r.Logger.Info("extracted winners",
			"packages", len(result.Winners),
			"dir", opts.OutputDir,
			"duration", result.Stats.ExtractTime)

		// The receipt is advisory; a write failure doesn't fail the merge.
		if err := WriteReceipt(opts.OutputDir, result); err != nil {
			r.Logger.Warn("could not write merge receipt", "err", err)
		}
	}

	return result, nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
