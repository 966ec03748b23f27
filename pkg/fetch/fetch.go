// Package fetch resolves archive references to local file paths.
//
// A reference is either a plain filesystem path, an http(s) URL, or an
// s3://bucket/key object. Remote references are downloaded to a temporary
// file and the caller receives a cleanup func that removes it; plain paths
// pass through untouched with a no-op cleanup.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"repomerge/pkg/cache"
	"repomerge/pkg/config"
	"repomerge/pkg/errors"
)

// Options configures how remote references are fetched.
type Options struct {
	// S3 configures the object store client used for s3:// references.
	S3 config.S3Config

	// Client is the HTTP client used for http(s) downloads. Defaults to
	// a client with a 5 minute timeout.
	Client *http.Client

	// Logger receives download progress. Defaults to a silent logger.
	Logger *log.Logger
}

// Resolve turns an archive reference into a local file path. On success the
// caller must invoke cleanup once it no longer needs the file; for plain
// paths cleanup is a no-op and the original file is never touched.
func Resolve(ctx context.Context, ref string, opts Options) (local string, cleanup func(), err error) {
	if err := errors.ValidateRef(ref); err != nil {
		return "", nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return downloadHTTP(ctx, ref, opts)
	case strings.HasPrefix(ref, "s3://"):
		return downloadS3(ctx, ref, opts)
	default:
		return ref, func() {}, nil
	}
}

// downloadHTTP fetches a URL into a temporary file, retrying transient
// failures with backoff. The temp file is rewound and truncated between
// attempts so a half-written body never survives into the next try.
func downloadHTTP(ctx context.Context, url string, opts Options) (string, func(), error) {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	tmp, err := os.CreateTemp("", "repomerge-*.zip")
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeInternal, err, "could not create temporary download file")
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	opts.Logger.Debug("downloading archive", "url", url)
	start := time.Now()

	err = cache.RetryWithBackoff(ctx, func() error {
		if err := tmp.Truncate(0); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "could not reset temporary download file")
		}
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "could not reset temporary download file")
		}
		return fetchOnce(ctx, client, url, tmp)
	})
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = errors.Wrap(errors.ErrCodeInternal, cerr, "could not finish download of %s", url)
	}
	if err != nil {
		cleanup()
		return "", nil, err
	}

	opts.Logger.Debug("download complete", "url", url, "duration", time.Since(start))
	return tmp.Name(), cleanup, nil
}

// fetchOnce performs a single download attempt. Connection failures and
// server errors are marked retryable; client errors are permanent.
func fetchOnce(ctx context.Context, client *http.Client, url string, dst io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRef, err, "invalid archive URL %q", url)
	}

	resp, err := client.Do(req)
	if err != nil {
		return cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= http.StatusInternalServerError:
		return cache.Retryable(errors.New(errors.ErrCodeNetwork, "server returned %s for %s", resp.Status, url))
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "archive not found at %s", url)
	default:
		return errors.New(errors.ErrCodeNetwork, "unexpected status %s for %s", resp.Status, url)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	return nil
}

// downloadS3 fetches an s3://bucket/key object into a temporary file.
func downloadS3(ctx context.Context, ref string, opts Options) (string, func(), error) {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return "", nil, err
	}
	if opts.S3.Endpoint == "" {
		return "", nil, errors.New(errors.ErrCodeInvalidConfig, "no S3 endpoint configured for %s", ref)
	}

	client, err := minio.New(opts.S3.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.S3.AccessKey, opts.S3.SecretKey, ""),
		Secure: !opts.S3.Insecure,
		Region: opts.S3.Region,
	})
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "could not create S3 client for %s", opts.S3.Endpoint)
	}

	opts.Logger.Debug("downloading archive", "bucket", bucket, "key", key)
	start := time.Now()

	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeNetwork, err, "could not fetch s3://%s/%s", bucket, key)
	}
	defer obj.Close()

	tmp, err := os.CreateTemp("", "repomerge-*.zip")
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeInternal, err, "could not create temporary download file")
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	// GetObject defers the request until the first read, so missing
	// objects surface here rather than above.
	_, err = io.Copy(tmp, obj)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return "", nil, errors.Wrap(errors.ErrCodeNotFound, err, "no such object s3://%s/%s", bucket, key)
		}
		return "", nil, errors.Wrap(errors.ErrCodeNetwork, err, "could not download s3://%s/%s", bucket, key)
	}

	opts.Logger.Debug("download complete", "bucket", bucket, "key", key, "duration", time.Since(start))
	return tmp.Name(), cleanup, nil
}

// parseS3Ref splits an s3://bucket/key reference into bucket and key.
func parseS3Ref(ref string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(ref, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", errors.New(errors.ErrCodeInvalidRef, "malformed S3 reference %q, want s3://bucket/key", ref)
	}
	return bucket, key, nil
}
