package cli

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"repomerge/pkg/catalog"
)

// inspectOpts holds the command-line flags for the inspect command.
type inspectOpts struct {
	interactive bool
	noCache     bool
	suffix      string
}

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	opts := inspectOpts{}

	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "List an archive's packages and versions",
		Long: `List the packages and versions bundled in a repository archive.

Only the zip central directory is read; nothing is extracted. Catalogs
are cached keyed by the archive's size and mtime, so repeat inspections
of an unchanged archive are instant.

Examples:
  repomerge inspect base.zip
  repomerge inspect --interactive base.zip
  repomerge inspect --no-cache https://mirror/update.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), &opts, args[0])
		},
	}

	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse the catalog interactively")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "always rescan the archive")
	cmd.Flags().StringVar(&opts.suffix, "suffix", "", "member suffix selecting catalog entries (default sources.jar)")

	return cmd
}

// runInspect scans the archive catalog and renders it.
func (c *CLI) runInspect(ctx context.Context, opts *inspectOpts, ref string) error {
	suffix := opts.suffix
	if suffix == "" {
		suffix = c.Config.Suffix
	}

	locals, cleanup, err := c.resolveArchives(ctx, []string{ref})
	if err != nil {
		return err
	}
	defer cleanup()

	store, keyer := c.newCache(opts.noCache)
	defer store.Close()

	cat, cached, err := catalog.CachedScan(ctx, store, keyer, locals[0], suffix)
	if err != nil {
		return err
	}

	if opts.interactive {
		model := NewCatalogModel(ref, cat)
		_, err := tea.NewProgram(model).Run()
		return err
	}

	printCatalog(ref, cat, cached)
	return nil
}

// printCatalog renders a catalog to stdout, newest version of each package
// highlighted.
func printCatalog(ref string, cat *catalog.Catalog, cached bool) {
	printInfo("Catalog of %s", StyleHighlight.Render(ref))
	printNewline()

	for _, p := range cat.Packages {
		var versions []string
		for i, v := range p.Versions {
			dv := v.DisplayVersion()
			if dv == "" {
				dv = "(none)"
			}
			if i == len(p.Versions)-1 {
				dv = StyleSuccess.Render(dv)
			} else {
				dv = StyleDim.Render(dv)
			}
			versions = append(versions, dv)
		}
		printPackageLine(p.Name, strings.Join(versions, " "))
	}

	printNewline()
	printStats(cat.PackageCount(), cat.VersionCount(), cached)
}
