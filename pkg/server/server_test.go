package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"repomerge/pkg/artifact"
	"repomerge/pkg/errors"
	"repomerge/pkg/merge"
)

// serveDir builds a merged-looking output directory with two unpacked jars.
func serveDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, p := range []string{
		"alpha-1.0-sources.jar/com/example/Alpha.java",
		"zeta-2.5.1-sources.jar/org/zeta/Zeta.java",
	} {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("content of "+p), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestServer(t *testing.T, dir string) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(Options{Dir: dir})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Read body failed: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestNewMissingDir(t *testing.T) {
	_, err := New(Options{Dir: filepath.Join(t.TempDir(), "missing")})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Should refuse a missing directory: %v", err)
	}
}

func TestNewDirIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := New(Options{Dir: path})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Should refuse a non-directory: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	_, srv := newTestServer(t, serveDir(t))

	status, body := get(t, srv.URL+"/healthz")
	if status != http.StatusOK {
		t.Errorf("Should be healthy: %d", status)
	}
	if !strings.Contains(body, `"ok"`) {
		t.Errorf("Unexpected health body: %q", body)
	}
}

func TestCatalogFromDirectory(t *testing.T) {
	_, srv := newTestServer(t, serveDir(t))

	status, body := get(t, srv.URL+"/-/catalog")
	if status != http.StatusOK {
		t.Fatalf("Catalog failed: %d", status)
	}

	var got CatalogResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("Catalog is not valid JSON: %v", err)
	}
	if got.Source != "directory" {
		t.Errorf("Should fall back to directory names: %q", got.Source)
	}
	if len(got.Packages) != 2 {
		t.Fatalf("Should list both packages: %+v", got.Packages)
	}
	if got.Packages[0].Package != "alpha" || got.Packages[0].Version != "1.0" {
		t.Errorf("Unexpected first package: %+v", got.Packages[0])
	}
	if got.Packages[1].Package != "zeta" || got.Packages[1].Version != "2.5.1" {
		t.Errorf("Unexpected second package: %+v", got.Packages[1])
	}
}

func TestCatalogFromReceipt(t *testing.T) {
	dir := serveDir(t)
	result := &merge.Result{
		Archives: []string{"base.zip", "update-1.zip"},
		Winners: []artifact.Entry{
			artifact.Parse("jars/alpha-1.0-sources.jar"),
			artifact.Parse("jars/zeta-2.5.1-sources.jar"),
		},
	}
	if err := merge.WriteReceipt(dir, result); err != nil {
		t.Fatal(err)
	}
	_, srv := newTestServer(t, dir)

	status, body := get(t, srv.URL+"/-/catalog")
	if status != http.StatusOK {
		t.Fatalf("Catalog failed: %d", status)
	}

	var got CatalogResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("Catalog is not valid JSON: %v", err)
	}
	if got.Source != "receipt" {
		t.Errorf("Should prefer the merge receipt: %q", got.Source)
	}
	if len(got.Archives) != 2 || got.Archives[0] != "base.zip" {
		t.Errorf("Should echo receipt archives: %v", got.Archives)
	}
	if len(got.Packages) != 2 || got.Packages[0].Jar != "alpha-1.0-sources.jar" {
		t.Errorf("Should echo receipt packages: %+v", got.Packages)
	}
}

func TestServeFile(t *testing.T) {
	_, srv := newTestServer(t, serveDir(t))

	status, body := get(t, srv.URL+"/alpha-1.0-sources.jar/com/example/Alpha.java")
	if status != http.StatusOK {
		t.Fatalf("File fetch failed: %d", status)
	}
	if !strings.Contains(body, "Alpha.java") {
		t.Errorf("Unexpected file body: %q", body)
	}
}

func TestNotFound(t *testing.T) {
	_, srv := newTestServer(t, serveDir(t))

	status, _ := get(t, srv.URL+"/no-such-package/")
	if status != http.StatusNotFound {
		t.Errorf("Should 404 on unknown paths: %d", status)
	}
}

func TestListingRoot(t *testing.T) {
	dir := serveDir(t)
	if err := merge.WriteReceipt(dir, &merge.Result{}); err != nil {
		t.Fatal(err)
	}
	_, srv := newTestServer(t, dir)

	status, body := get(t, srv.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("Listing failed: %d", status)
	}
	if !strings.Contains(body, `href="alpha-1.0-sources.jar/"`) {
		t.Errorf("Listing should link the unpacked jars: %q", body)
	}
	if strings.Contains(body, merge.ReceiptName) {
		t.Errorf("Listing should hide the receipt: %q", body)
	}
}

func TestListingRedirect(t *testing.T) {
	_, srv := newTestServer(t, serveDir(t))

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(srv.URL + "/alpha-1.0-sources.jar")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMovedPermanently {
		t.Fatalf("Should redirect directories to a trailing slash: %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/alpha-1.0-sources.jar/" {
		t.Errorf("Unexpected redirect target: %q", loc)
	}
}

func TestListingCacheInvalidation(t *testing.T) {
	dir := serveDir(t)
	s, srv := newTestServer(t, dir)

	if _, body := get(t, srv.URL+"/"); strings.Contains(body, "gamma") {
		t.Fatalf("Fresh listing should not mention gamma: %q", body)
	}
	if s.listings.Len() != 1 {
		t.Errorf("Listing should be cached: %d entries", s.listings.Len())
	}

	// Give the directory mtime a chance to advance past filesystem
	// timestamp granularity before mutating it.
	time.Sleep(10 * time.Millisecond)
	if err := os.Mkdir(filepath.Join(dir, "gamma-3.0-sources.jar"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, body := get(t, srv.URL+"/")
	if !strings.Contains(body, "gamma-3.0-sources.jar/") {
		t.Errorf("Changed directory should invalidate the cached listing: %q", body)
	}
}

func TestTraversalBlocked(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "repo")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	secret := filepath.Join(parent, "secret.txt")
	if err := os.WriteFile(secret, []byte("top secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := New(Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/../secret.txt", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code == http.StatusOK && strings.Contains(rec.Body.String(), "top secret") {
		t.Fatalf("Traversal escaped the served directory: %d %q", rec.Code, rec.Body.String())
	}
}
