package cli

import (
	"context"

	"github.com/spf13/cobra"

	"repomerge/pkg/server"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr string
	dir  string
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve [-l addr] [-d dir]",
		Short: "Serve a merged output directory over HTTP",
		Long: `Serve a merged repository directory as a small local browser.

Routes:
  GET /healthz    liveness probe
  GET /-/catalog  JSON package catalog (from the merge receipt when present)
  GET /*          static files with directory listings

Examples:
  repomerge serve -d out
  repomerge serve -d out -l 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.addr, "listen", "l", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "merged directory to serve (default from config, .)")

	return cmd
}

// runServe blocks serving the directory until the context is canceled.
func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	logger := loggerFromContext(ctx)

	addr := opts.addr
	if addr == "" {
		addr = c.Config.Serve.Addr
	}
	dir := opts.dir
	if dir == "" {
		dir = c.Config.Serve.Dir
	}

	srv, err := server.New(server.Options{
		Dir:              dir,
		Addr:             addr,
		ListingCacheSize: c.Config.Serve.ListingCacheSize,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	printInfo("Serving %s on %s", StyleValue.Render(dir), StyleLink.Render(addr))
	printDetail("Press Ctrl+C to stop")
	return srv.ListenAndServe(ctx)
}
