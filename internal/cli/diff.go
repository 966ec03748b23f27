package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"repomerge/pkg/catalog"
)

// errCatalogsDiffer signals the diff-tool exit convention: differences
// found is exit code 1, identical catalogs exit 0.
var errCatalogsDiffer = fmt.Errorf("catalogs differ")

// diffOpts holds the command-line flags for the diff command.
type diffOpts struct {
	unified bool
	noCache bool
	suffix  string
}

// diffCommand creates the diff command.
func (c *CLI) diffCommand() *cobra.Command {
	opts := diffOpts{}

	cmd := &cobra.Command{
		Use:   "diff <base> <update>",
		Short: "Compare the catalogs of two archives",
		Long: `Compare what two repository archives bundle, package by package.

The default output groups packages into added, removed, and changed;
--unified prints a classic unified text diff instead. Exit code is 1
when the catalogs differ and 0 when they are identical.

Examples:
  repomerge diff base.zip update-1.zip
  repomerge diff --unified base.zip update-1.zip`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDiff(cmd.Context(), &opts, args[0], args[1])
		},
	}

	cmd.Flags().BoolVarP(&opts.unified, "unified", "u", false, "print a unified text diff")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "always rescan the archives")
	cmd.Flags().StringVar(&opts.suffix, "suffix", "", "member suffix selecting catalog entries (default sources.jar)")

	return cmd
}

// runDiff scans both catalogs and prints their differences.
func (c *CLI) runDiff(ctx context.Context, opts *diffOpts, baseRef, updateRef string) error {
	suffix := opts.suffix
	if suffix == "" {
		suffix = c.Config.Suffix
	}

	locals, cleanup, err := c.resolveArchives(ctx, []string{baseRef, updateRef})
	if err != nil {
		return err
	}
	defer cleanup()

	store, keyer := c.newCache(opts.noCache)
	defer store.Close()

	base, _, err := catalog.CachedScan(ctx, store, keyer, locals[0], suffix)
	if err != nil {
		return err
	}
	update, _, err := catalog.CachedScan(ctx, store, keyer, locals[1], suffix)
	if err != nil {
		return err
	}

	if opts.unified {
		text, err := catalog.Unified(base, update)
		if err != nil {
			return err
		}
		if text == "" {
			printSuccess("Catalogs are identical")
			return nil
		}
		fmt.Print(text)
		return errCatalogsDiffer
	}

	d := catalog.Diff(base, update)
	if d.Empty() {
		printSuccess("Catalogs are identical")
		return nil
	}
	printStructuralDiff(d)
	return errCatalogsDiffer
}

// printStructuralDiff renders added, removed, and changed packages.
func printStructuralDiff(d *catalog.DiffResult) {
	for _, p := range d.Added {
		fmt.Println(StyleSuccess.Render("+ "+p.Name) + " " + StyleDim.Render(versionList(p)))
	}
	for _, p := range d.Removed {
		fmt.Println(StyleWarning.Render("- "+p.Name) + " " + StyleDim.Render(versionList(p)))
	}
	for _, ch := range d.Changed {
		fmt.Println(StyleHighlight.Render("~ "+ch.Package) + " " +
			StyleDim.Render(strings.Join(ch.Old, " ")) + " " + iconArrow + " " +
			StyleValue.Render(strings.Join(ch.New, " ")))
	}

	printNewline()
	printDetail("%d added, %d removed, %d changed", len(d.Added), len(d.Removed), len(d.Changed))
}

// versionList joins a package's display versions for one-line output.
func versionList(p catalog.Package) string {
	out := make([]string, len(p.Versions))
	for i, v := range p.Versions {
		out[i] = v.DisplayVersion()
	}
	return strings.Join(out, " ")
}
