package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"repomerge/pkg/report"
)

// reportOpts holds the command-line flags for the report command.
type reportOpts struct {
	output string
	format string
	suffix string
}

// reportCommand creates the report command.
func (c *CLI) reportCommand() *cobra.Command {
	opts := reportOpts{format: string(report.FormatText)}

	cmd := &cobra.Command{
		Use:   "report <archive> [<archive> ...]",
		Short: "Explain which candidate wins each package slot",
		Long: `Replay the merge selection without extracting anything.

Every candidate jar is listed under its package together with the
archive that supplied it, and the candidate a real merge would extract
is marked. The dot and svg formats draw the selection as a graph from
archives to packages.

Examples:
  repomerge report base.zip update-1.zip
  repomerge report --format json base.zip update-1.zip
  repomerge report --format svg -o report.svg base.zip update-1.zip`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runReport(cmd.Context(), &opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: text, json, dot, or svg")
	cmd.Flags().StringVar(&opts.suffix, "suffix", "", "member suffix selecting candidates (default sources.jar)")

	return cmd
}

// runReport builds the selection report and renders it.
func (c *CLI) runReport(ctx context.Context, opts *reportOpts, refs []string) error {
	logger := loggerFromContext(ctx)

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
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

	prog := newProgress(logger)
	rep, err := report.BuildNamed(locals, displayNames(refs), suffix)
	if err != nil {
		return err
	}
	prog.done("Replayed selection")

	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := rep.Render(ctx, out, format); err != nil {
		return err
	}
	if opts.output != "" {
		printSuccess("Wrote %s report", format)
		printFile(opts.output)
	}
	return nil
}

// nopCloser wraps an io.Writer with a no-op Close method, so os.Stdout can
// be used where an io.WriteCloser is expected.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path; empty means stdout.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
