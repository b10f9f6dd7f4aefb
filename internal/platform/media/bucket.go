package media

import (
	"bytes"
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/creator-studio/internal/platform/gcp"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

// BucketStore keeps media in a GCS bucket behind gs:// handles.
type BucketStore struct {
	log    *logger.Logger
	bucket gcp.MediaBucket
}

func NewBucketStore(log *logger.Logger, bucket gcp.MediaBucket) *BucketStore {
	return &BucketStore{log: log.With("service", "BucketMediaStore"), bucket: bucket}
}

func (s *BucketStore) Mode() Mode { return ModeGCS }

func (s *BucketStore) Put(ctx context.Context, ownerID string, data []byte, mime string) (string, error) {
	key := path.Join("videos", ownerDir(ownerID), uuid.NewString()+extensionFor(mime))
	if err := s.bucket.Upload(ctx, key, mime, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return s.bucket.Locator(key), nil
}

func (s *BucketStore) Open(ctx context.Context, ownerID string, handle string) ([]byte, string, error) {
	key, err := s.keyOf(ownerID, handle)
	if err != nil {
		return nil, "", err
	}
	data, mime, err := s.bucket.Download(ctx, key)
	if errors.Is(err, gcp.ErrObjectNotFound) {
		return nil, "", ErrUnknownHandle
	}
	return data, mime, err
}

func (s *BucketStore) Release(ctx context.Context, ownerID string, handle string) error {
	key, err := s.keyOf(ownerID, handle)
	if err != nil {
		return err
	}
	return s.bucket.Delete(ctx, key)
}

// keyOf maps a locator back to the key used by Put. Keys are always
// videos/<owner>/<file>, so the configured prefix is whatever precedes them.
// Keys under another owner's directory are rejected.
func (s *BucketStore) keyOf(ownerID, handle string) (string, error) {
	_, object, ok := gcp.ParseLocator(handle)
	if !ok {
		return "", ErrUnknownHandle
	}
	parts := strings.Split(object, "/")
	if len(parts) < 3 {
		return "", ErrUnknownHandle
	}
	tail := parts[len(parts)-3:]
	if tail[0] != "videos" || tail[1] != ownerDir(ownerID) {
		return "", ErrUnknownHandle
	}
	key := strings.Join(tail, "/")
	if s.bucket.Locator(key) != handle {
		return "", ErrUnknownHandle
	}
	return key, nil
}
