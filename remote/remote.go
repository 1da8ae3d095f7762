// Package remote copies a written feature file to Google Cloud Storage.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/sony/gobreaker/v2"
	"google.golang.org/api/option"
)

// EndpointEnv names the variable that points uploads at an emulator.
const EndpointEnv = "FEATGEN_GCS_ENDPOINT"

// MaxAttempts is the number of consecutive failed attempts that opens the
// upload breaker.
const MaxAttempts = 3

// ErrInvalidDestination is returned for anything that is not gs://bucket[/prefix].
var ErrInvalidDestination = errors.New("invalid destination")

// Destination is a bucket plus an optional object prefix.
type Destination struct {
	Bucket string
	Prefix string
}

// ParseDestination parses gs://bucket[/prefix].
func ParseDestination(raw string) (Destination, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}
	if u.Scheme != "gs" || u.Host == "" {
		return Destination{}, fmt.Errorf("%w: %q, want gs://bucket[/prefix]", ErrInvalidDestination, raw)
	}
	return Destination{Bucket: u.Host, Prefix: strings.Trim(u.Path, "/")}, nil
}

// Object returns the object name for a local file.
func (d Destination) Object(localPath string) string {
	return path.Join(d.Prefix, filepath.Base(localPath))
}

// URL renders gs://bucket/object.
func (d Destination) URL(object string) string {
	return "gs://" + d.Bucket + "/" + object
}

// ObjectOpener opens a writer for bucket/object. Closing it commits the object.
type ObjectOpener func(ctx context.Context, bucket, object string) io.WriteCloser

// Uploader copies local files to one destination. Failed attempts are
// retried with linear backoff until the breaker opens.
type Uploader struct {
	dest    Destination
	open    ObjectOpener
	closer  io.Closer
	breaker *gobreaker.CircuitBreaker[string]
	backoff time.Duration
}

// NewUploader builds an Uploader over any ObjectOpener.
func NewUploader(dest Destination, open ObjectOpener) *Uploader {
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "gcs-upload",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= MaxAttempts
		},
	})
	return &Uploader{dest: dest, open: open, breaker: cb, backoff: 250 * time.Millisecond}
}

// ClientOptions returns the emulator options when EndpointEnv is set.
func ClientOptions() []option.ClientOption {
	endpoint := os.Getenv(EndpointEnv)
	if endpoint == "" {
		return nil
	}
	return []option.ClientOption{option.WithEndpoint(endpoint), option.WithoutAuthentication()}
}

// NewGCSUploader creates a storage client for raw (gs://bucket[/prefix]).
func NewGCSUploader(ctx context.Context, raw string, opts ...option.ClientOption) (*Uploader, error) {
	dest, err := ParseDestination(raw)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	u := NewUploader(dest, func(ctx context.Context, bucket, object string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = contentType(object)
		return w
	})
	u.closer = client
	return u, nil
}

// Upload copies localPath to the destination and returns its gs:// URL.
func (u *Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("failed to open file %q: %w", localPath, err)
	}

	for attempt := 1; ; attempt++ {
		dst, err := u.breaker.Execute(func() (string, error) {
			return u.put(ctx, localPath)
		})
		if err == nil {
			return dst, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || u.breaker.State() == gobreaker.StateOpen {
			return "", fmt.Errorf("upload abandoned after %d attempts: %w", attempt, err)
		}
		if ctx.Err() != nil {
			return "", err
		}

		select {
		case <-ctx.Done():
			return "", err
		case <-time.After(u.backoff * time.Duration(attempt)):
		}
	}
}

func (u *Uploader) put(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %q: %w", localPath, err)
	}
	defer func() {
		_ = f.Close()
	}()

	object := u.dest.Object(localPath)
	w := u.open(ctx, u.dest.Bucket, object)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %q: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %q: %w", object, err)
	}
	return u.dest.URL(object), nil
}

// Close releases the storage client, if any.
func (u *Uploader) Close() error {
	if u.closer == nil {
		return nil
	}
	return u.closer.Close()
}

func contentType(object string) string {
	switch path.Ext(object) {
	case ".csv":
		return "text/csv"
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".arrow":
		return "application/vnd.apache.arrow.file"
	default:
		return "application/octet-stream"
	}
}
