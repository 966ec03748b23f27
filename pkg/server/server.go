// Package server exposes a merged repository directory over HTTP.
//
// Routes:
//
//	GET /healthz    liveness probe
//	GET /-/catalog  JSON package catalog (receipt-backed when available)
//	GET /*          static files with generated directory listings
//
// Directory listings are rendered once and cached in a bounded LRU keyed
// by URL path; a change to the directory's mtime invalidates the entry.
package server

import (
	"context"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"

	"repomerge/pkg/artifact"
	"repomerge/pkg/config"
	"repomerge/pkg/errors"
	"repomerge/pkg/merge"
)

// =============================================================================
// Options - Server Configuration
// =============================================================================

// Options configures a repository server.
type Options struct {
	// Dir is the merged output directory to serve. It must exist.
	Dir string `json:"dir"`

	// Addr is the listen address for ListenAndServe.
	Addr string `json:"addr"`

	// ListingCacheSize bounds the rendered directory listing cache.
	// Defaults to config.DefaultListingCacheSize.
	ListingCacheSize int `json:"listing_cache_size,omitempty"`

	// Logger receives request logs. Defaults to a silent logger.
	Logger *log.Logger `json:"-"`
}

// =============================================================================
// Server - Repository HTTP Server
// =============================================================================

// Server serves a merged repository directory.
type Server struct {
	dir      string
	addr     string
	logger   *log.Logger
	router   chi.Router
	listings *lru.Cache[string, cachedListing]
}

// cachedListing is a rendered directory page pinned to the directory
// mtime observed at render time.
type cachedListing struct {
	modTime time.Time
	html    []byte
}

// New validates opts and builds the router. The served directory must
// already exist; serving an unmerged path is a usage error.
func New(opts Options) (*Server, error) {
	if opts.Dir == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "serve directory is required")
	}
	info, err := os.Stat(opts.Dir)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "serve directory does not exist: %s", opts.Dir)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "stat %s", opts.Dir)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "serve path is not a directory: %s", opts.Dir)
	}

	size := opts.ListingCacheSize
	if size <= 0 {
		size = config.DefaultListingCacheSize
	}
	listings, err := lru.New[string, cachedListing](size)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "could not create listing cache")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	s := &Server{
		dir:      opts.Dir,
		addr:     opts.Addr,
		logger:   logger,
		listings: listings,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/healthz", s.handleHealth)
	r.Get("/-/catalog", s.handleCatalog)
	r.Get("/*", s.handleFiles)
	s.router = r

	return s, nil
}

// Handler returns the server's HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving requests until ctx is canceled, then
// drains in-flight requests before returning.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("serving repository", "dir", s.dir, "addr", s.addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return errors.Wrap(errors.ErrCodeNetwork, err, "could not listen on %s", s.addr)
	}
	return <-done
}

// logRequests logs one line per request with status and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CatalogResponse is the /-/catalog payload. Source reports where the
// package list came from: "receipt" after a merge wrote one, "directory"
// when only the extracted tree is available.
type CatalogResponse struct {
	Source   string                 `json:"source"`
	MergedAt time.Time              `json:"merged_at,omitempty"`
	Archives []string               `json:"archives,omitempty"`
	Packages []merge.ReceiptPackage `json:"packages"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	receipt, err := merge.ReadReceipt(s.dir)
	if err == nil {
		writeJSON(w, http.StatusOK, CatalogResponse{
			Source:   "receipt",
			MergedAt: receipt.MergedAt,
			Archives: receipt.Archives,
			Packages: receipt.Packages,
		})
		return
	}
	if !errors.Is(err, errors.ErrCodeNotFound) {
		s.logger.Warn("could not read merge receipt", "err", err)
		http.Error(w, "could not read merge receipt", http.StatusInternalServerError)
		return
	}

	packages, err := scanPackages(s.dir)
	if err != nil {
		s.logger.Warn("could not scan serve directory", "err", err)
		http.Error(w, "could not scan directory", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Source: "directory", Packages: packages})
}

// scanPackages derives the catalog from unpacked jar directory names when
// no receipt exists.
func scanPackages(dir string) ([]merge.ReceiptPackage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	packages := make([]merge.ReceiptPackage, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		parsed := artifact.Parse(entry.Name())
		packages = append(packages, merge.ReceiptPackage{
			Package: parsed.Package,
			Version: parsed.DisplayVersion(),
			Jar:     entry.Name(),
		})
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].Package < packages[j].Package })
	return packages, nil
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	// Clean with a forced leading slash so ".." can never escape the
	// served directory.
	urlPath := path.Clean("/" + chi.URLParam(r, "*"))
	local := filepath.Join(s.dir, filepath.FromSlash(urlPath))

	info, err := os.Stat(local)
	if os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "could not stat path", http.StatusInternalServerError)
		return
	}

	if !info.IsDir() {
		http.ServeFile(w, r, local)
		return
	}

	// Relative links in listings need the trailing slash.
	if urlPath != "/" && !strings.HasSuffix(r.URL.Path, "/") {
		http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
		return
	}

	page, err := s.renderListing(urlPath, local, info.ModTime())
	if err != nil {
		s.logger.Warn("could not render listing", "path", urlPath, "err", err)
		http.Error(w, "could not render listing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// =============================================================================
// Directory Listings
// =============================================================================

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Index of {{.Path}}</title></head>
<body>
<h1>Index of {{.Path}}</h1>
<hr>
<pre>{{if .HasParent}}<a href="../">../</a>
{{end}}{{range .Entries}}<a href="{{.Href}}">{{.Href}}</a>{{if not .IsDir}}  {{.Size}} bytes{{end}}
{{end}}</pre>
<hr>
</body>
</html>
`))

type listingEntry struct {
	Href  string
	Size  int64
	IsDir bool
}

type listingData struct {
	Path      string
	HasParent bool
	Entries   []listingEntry
}

// renderListing returns the HTML page for a directory, from cache when
// the directory has not changed since the page was rendered.
func (s *Server) renderListing(urlPath, local string, modTime time.Time) ([]byte, error) {
	if cached, ok := s.listings.Get(urlPath); ok && cached.modTime.Equal(modTime) {
		return cached.html, nil
	}

	entries, err := os.ReadDir(local)
	if err != nil {
		return nil, err
	}

	data := listingData{Path: urlPath, HasParent: urlPath != "/"}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		le := listingEntry{Href: entry.Name(), IsDir: entry.IsDir()}
		if entry.IsDir() {
			le.Href += "/"
		} else if info, err := entry.Info(); err == nil {
			le.Size = info.Size()
		}
		data.Entries = append(data.Entries, le)
	}
	sort.Slice(data.Entries, func(i, j int) bool {
		if data.Entries[i].IsDir != data.Entries[j].IsDir {
			return data.Entries[i].IsDir
		}
		return data.Entries[i].Href < data.Entries[j].Href
	})

	var buf strings.Builder
	if err := listingTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	page := []byte(buf.String())

	s.listings.Add(urlPath, cachedListing{modTime: modTime, html: page})
	return page, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
