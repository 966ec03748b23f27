package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"repomerge/pkg/artifact"
	"repomerge/pkg/fetch"
	"repomerge/pkg/merge"
)

// mergeOpts holds the command-line flags for the merge command.
type mergeOpts struct {
	outputDir string // where winning jars are unpacked
	suffix    string // member suffix selecting merge candidates
	dryRun    bool   // compute the selection without extracting
}

// mergeCommand creates the merge command.
//
// Archives merge in supply order: the base archive first, then incremental
// updates. Per package only the newest version survives; a version tie is
// won by the later archive.
func (c *CLI) mergeCommand() *cobra.Command {
	opts := mergeOpts{}

	cmd := &cobra.Command{
		Use:   "merge -d <output-dir> <archive> [<archive> ...]",
		Short: "Merge archives, extracting the newest version of each package",
		Long: `Merge a base repository archive with incremental update archives.

Every bundled sources jar is considered; per package only the newest
version is unpacked into the output directory. Archives are merged in
supply order: the base archive first, then incremental updates.

Archive arguments may be local paths, http(s) URLs, or s3://bucket/key
references. Remote archives are downloaded before merging.

Examples:
  repomerge merge -d out base.zip
  repomerge merge -d out base.zip update-1.zip update-2.zip
  repomerge merge -d out --dry-run base.zip https://mirror/update.zip`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMerge(cmd.Context(), &opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "d", "", "directory to unpack winners into (required unless configured)")
	cmd.Flags().StringVar(&opts.suffix, "suffix", "", "member suffix selecting merge candidates (default sources.jar)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the selection without extracting anything")

	return cmd
}

// runMerge resolves archive references and executes the merge pipeline.
func (c *CLI) runMerge(ctx context.Context, opts *mergeOpts, refs []string) error {
	logger := loggerFromContext(ctx)

	outputDir := opts.outputDir
	if outputDir == "" {
		outputDir = c.Config.OutputDir
	}
	suffix := opts.suffix
	if suffix == "" {
		suffix = c.Config.Suffix
	}

	locals, cleanup, err := c.resolveArchives(ctx, refs)
	if err != nil {
		return err
	}
	defer cleanup()

	runner := merge.NewRunner(logger)
	result, err := runner.Run(ctx, merge.Options{
		OutputDir:   outputDir,
		Archives:    locals,
		Names:       displayNames(refs),
		Suffix:      suffix,
		ScratchRoot: c.Config.ScratchRoot,
		DryRun:      opts.dryRun,
		Events: merge.Events{
			ArchiveOpened: func(name string, members int) {
				printInfo("Merging %s %s", StyleHighlight.Render(name), StyleDim.Render(fmt.Sprintf("(%d jars)", members)))
			},
			WinnerExtracted: func(e artifact.Entry) {
				printFile(e.Basename())
			},
		},
	})
	if err != nil {
		return err
	}

	printNewline()
	if opts.dryRun {
		printInfo("Dry run: %d packages would be extracted to %s", len(result.Winners), outputDir)
	} else {
		printSuccess("Merged %d archives into %s", len(result.Archives), outputDir)
	}
	printDetail("%d packages selected, %d older versions skipped", len(result.Winners), result.SkippedOlder)
	if !opts.dryRun {
		printNextStep("Browse the result", fmt.Sprintf("repomerge serve -d %s", outputDir))
	}
	return nil
}

// resolveArchives turns archive references into local paths, downloading
// remote ones. The returned cleanup removes every downloaded temp file and
// must be called even when resolveArchives fails part-way, which it does
// itself before returning an error.
func (c *CLI) resolveArchives(ctx context.Context, refs []string) ([]string, func(), error) {
	logger := loggerFromContext(ctx)

	var locals []string
	var cleanups []func()
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	for _, ref := range refs {
		var spin *Spinner
		if isRemote(ref) {
			spin = newSpinnerWithContext(ctx, fmt.Sprintf("Downloading %s...", ref))
			spin.Start()
		}

		local, fn, err := fetch.Resolve(ctx, ref, fetch.Options{
			S3:     c.Config.S3,
			Logger: logger,
		})
		if spin != nil {
			if err != nil {
				spin.StopWithError(fmt.Sprintf("Download failed: %s", ref))
			} else {
				spin.StopWithSuccess(fmt.Sprintf("Downloaded %s", ref))
			}
		}
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		locals = append(locals, local)
		cleanups = append(cleanups, fn)
	}

	return locals, cleanup, nil
}
