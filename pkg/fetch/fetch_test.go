package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"repomerge/pkg/cache"
	"repomerge/pkg/errors"
)

func TestResolveLocalPassthrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.zip")
	if err := os.WriteFile(path, []byte("zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	local, cleanup, err := Resolve(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if local != path {
		t.Errorf("Should return the path unchanged: %q", local)
	}

	cleanup()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Cleanup should not remove local files: %v", err)
	}
}

func TestResolveEmptyRef(t *testing.T) {
	_, _, err := Resolve(context.Background(), "", Options{})
	if !errors.Is(err, errors.ErrCodeInvalidRef) {
		t.Errorf("Should reject empty references: %v", err)
	}
}

func TestResolveUnsupportedScheme(t *testing.T) {
	_, _, err := Resolve(context.Background(), "ftp://mirror/base.zip", Options{})
	if !errors.Is(err, errors.ErrCodeInvalidRef) {
		t.Errorf("Should reject unsupported schemes: %v", err)
	}
}

func TestResolveHTTP(t *testing.T) {
	body := []byte("archive-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	local, cleanup, err := Resolve(context.Background(), srv.URL+"/base.zip", Options{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	got, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("Should download to a readable file: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("Downloaded content mismatch: %q", got)
	}

	cleanup()
	if _, err := os.Stat(local); !os.IsNotExist(err) {
		t.Errorf("Cleanup should remove the temp file: %v", err)
	}
}

func TestResolveHTTPRetriesServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	local, cleanup, err := Resolve(context.Background(), srv.URL, Options{})
	if err != nil {
		t.Fatalf("Should recover from a transient server error: %v", err)
	}
	defer cleanup()

	if calls != 2 {
		t.Errorf("Should retry once: %d calls", calls)
	}
	got, err := os.ReadFile(local)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "ok" {
		t.Errorf("Should keep only the successful body: %q", got)
	}
}

func TestResolveHTTPNotFound(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, _, err := Resolve(context.Background(), srv.URL, Options{})
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Should report a not-found error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry client errors: %d calls", calls)
	}
}

func TestFetchOnceClassifiesErrors(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", status)
	}))
	defer srv.Close()
	client := &http.Client{}

	status = http.StatusBadGateway
	err := fetchOnce(context.Background(), client, srv.URL, io.Discard)
	if !cache.IsRetryable(err) {
		t.Errorf("Server errors should be retryable: %v", err)
	}

	status = http.StatusForbidden
	err = fetchOnce(context.Background(), client, srv.URL, io.Discard)
	if cache.IsRetryable(err) {
		t.Errorf("Client errors should not be retryable: %v", err)
	}
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("Should carry a network error code: %v", err)
	}

	// Connection failures are retryable too.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := dead.URL
	dead.Close()
	err = fetchOnce(context.Background(), client, url, io.Discard)
	if !cache.IsRetryable(err) {
		t.Errorf("Connection failures should be retryable: %v", err)
	}
}

func TestResolveS3MissingEndpoint(t *testing.T) {
	_, _, err := Resolve(context.Background(), "s3://bundles/base.zip", Options{})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Should require an endpoint for S3 references: %v", err)
	}
}

func TestResolveS3MalformedRef(t *testing.T) {
	_, _, err := Resolve(context.Background(), "s3://bundles", Options{})
	if !errors.Is(err, errors.ErrCodeInvalidRef) {
		t.Errorf("Should reject references without a key: %v", err)
	}
}

func TestParseS3Ref(t *testing.T) {
	tests := []struct {
		ref     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://bundles/base.zip", "bundles", "base.zip", false},
		{"s3://bundles/nightly/update-1.zip", "bundles", "nightly/update-1.zip", false},
		{"s3://bundles", "", "", true},
		{"s3://bundles/", "", "", true},
		{"s3:///base.zip", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			bucket, key, err := parseS3Ref(tt.ref)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Should reject malformed reference")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseS3Ref failed: %v", err)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("Got %q/%q, want %q/%q", bucket, key, tt.bucket, tt.key)
			}
		})
	}
}
