package media

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/yungbote/creator-studio/internal/platform/logger"
)

const blobPrefix = "blob:studio/"

type transientEntry struct {
	owner string
	data  []byte
	mime  string
}

type TransientStore struct {
	log   *logger.Logger
	cache *cache.Cache
	ttl   time.Duration
}

// NewTransientStore keeps entries for ttl after their last Put; ttl <= 0 keeps them
// for the life of the process.
func NewTransientStore(log *logger.Logger, ttl time.Duration) *TransientStore {
	exp := ttl
	if exp <= 0 {
		exp = cache.NoExpiration
	}
	cleanup := 10 * time.Minute
	if ttl > 0 && ttl < cleanup {
		cleanup = ttl
	}
	return &TransientStore{
		log:   log.With("service", "TransientMediaStore"),
		cache: cache.New(exp, cleanup),
		ttl:   exp,
	}
}

func (s *TransientStore) Mode() Mode { return ModeTransient }

func (s *TransientStore) Put(ctx context.Context, ownerID string, data []byte, mime string) (string, error) {
	handle := blobPrefix + uuid.NewString()
	s.cache.Set(handle, transientEntry{owner: ownerID, data: data, mime: mime}, cache.DefaultExpiration)
	s.log.Debug("Transient media stored", "handle", handle, "bytes", len(data), "owner_id", ownerID)
	return handle, nil
}

func (s *TransientStore) Open(ctx context.Context, ownerID string, handle string) ([]byte, string, error) {
	e, ok := s.entry(ownerID, handle)
	if !ok {
		return nil, "", ErrUnknownHandle
	}
	return e.data, e.mime, nil
}

func (s *TransientStore) Release(ctx context.Context, ownerID string, handle string) error {
	if _, ok := s.entry(ownerID, handle); ok {
		s.cache.Delete(handle)
	}
	return nil
}

func (s *TransientStore) entry(ownerID, handle string) (transientEntry, bool) {
	if !strings.HasPrefix(handle, blobPrefix) {
		return transientEntry{}, false
	}
	v, ok := s.cache.Get(handle)
	if !ok {
		return transientEntry{}, false
	}
	e := v.(transientEntry)
	if e.owner != ownerID {
		return transientEntry{}, false
	}
	return e, true
}
