package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/creator-studio/internal/platform/logger"
)

// MediaBucket stores generated media objects in one bucket.
type MediaBucket interface {
	Upload(ctx context.Context, key string, contentType string, body io.Reader) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	Locator(key string) string
	Close() error
}

var ErrObjectNotFound = errors.New("gcs object not found")

type mediaBucket struct {
	log    *logger.Logger
	client *storage.Client
	cfg    BucketConfig
}

func NewMediaBucket(ctx context.Context, log *logger.Logger, cfg BucketConfig) (MediaBucket, error) {
	if err := ValidateBucketConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate media bucket config: %w", err)
	}
	serviceLog := log.With("service", "MediaBucket")

	var opts []option.ClientOption
	if cfg.IsEmulator() {
		// the storage client routes to the emulator via its endpoint, without auth
		opts = append(opts, option.WithEndpoint(cfg.EmulatorHost+"/storage/v1/"), option.WithoutAuthentication())
	} else {
		opts = append(bucketCredentials(), option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info("Media bucket initialized",
		"mode", cfg.Mode,
		"emulator_fallback", cfg.EmulatorFallback,
		"bucket", cfg.Bucket,
		"prefix", cfg.Prefix,
	)
	return &mediaBucket{log: serviceLog, client: client, cfg: cfg}, nil
}

func (b *mediaBucket) objectName(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if b.cfg.Prefix == "" {
		return key
	}
	return path.Join(b.cfg.Prefix, key)
}

func (b *mediaBucket) Upload(ctx context.Context, key string, contentType string, body io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.client.Bucket(b.cfg.Bucket).Object(b.objectName(key)).NewWriter(ctx)
	w.ContentType = contentType
	if w.ContentType == "" {
		w.ContentType = ContentTypeForKey(key)
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (b *mediaBucket) Download(ctx context.Context, key string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	r, err := b.client.Bucket(b.cfg.Bucket).Object(b.objectName(key)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, "", ErrObjectNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open GCS object %q: %w", key, err)
	}
	defer r.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, "", fmt.Errorf("failed to read GCS object %q: %w", key, err)
	}
	ct := r.Attrs.ContentType
	if ct == "" {
		ct = ContentTypeForKey(key)
	}
	return buf.Bytes(), ct, nil
}

func (b *mediaBucket) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := b.client.Bucket(b.cfg.Bucket).Object(b.objectName(key)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, b.cfg.Bucket, err)
	}
	return nil
}

// Locator is the gs:// address stored in history records.
func (b *mediaBucket) Locator(key string) string {
	return fmt.Sprintf("gs://%s/%s", b.cfg.Bucket, b.objectName(key))
}

func (b *mediaBucket) PublicURL(key string) string {
	return publicURL(b.cfg, b.objectName(key))
}

func (b *mediaBucket) Close() error { return b.client.Close() }

func publicURL(cfg BucketConfig, object string) string {
	switch {
	case cfg.PublicBaseURL != "":
		return fmt.Sprintf("%s/%s/%s", cfg.PublicBaseURL, cfg.Bucket, object)
	case cfg.IsEmulator():
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", cfg.EmulatorHost, url.PathEscape(cfg.Bucket), url.PathEscape(object))
	default:
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.Bucket, object)
	}
}

// ParseLocator splits gs://bucket/object.
func ParseLocator(loc string) (bucket string, object string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(loc), "gs://")
	if !found {
		return "", "", false
	}
	bucket, object, found = strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}

func ContentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch path.Ext(s) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
