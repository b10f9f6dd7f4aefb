package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/creator-studio/internal/platform/gcp"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

type Mode string

const (
	// ModeTransient keeps media in process memory behind blob: handles that die with
	// the process.
	ModeTransient Mode = "transient"
	ModeLocal     Mode = "local"
	ModeGCS       Mode = "gcs"
)

var ErrUnknownHandle = errors.New("unknown media handle")

// Store holds generated media bytes behind an opaque content handle.
type Store interface {
	Put(ctx context.Context, ownerID string, data []byte, mime string) (string, error)
	// Open and Release only act on handles Put stored for ownerID; anything else
	// is ErrUnknownHandle.
	Open(ctx context.Context, ownerID string, handle string) ([]byte, string, error)
	Release(ctx context.Context, ownerID string, handle string) error
	Mode() Mode
}

type Config struct {
	Mode         Mode             `yaml:"mode"`
	LocalDir     string           `yaml:"dir"`
	TransientTTL time.Duration    `yaml:"transient_ttl"`
	Bucket       gcp.BucketConfig `yaml:"bucket"`
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (Store, error) {
	switch Mode(strings.ToLower(string(cfg.Mode))) {
	case "", ModeTransient:
		return NewTransientStore(log, cfg.TransientTTL), nil
	case ModeLocal:
		return NewLocalStore(log, cfg.LocalDir)
	case ModeGCS:
		bucket, err := gcp.NewMediaBucket(ctx, log, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return NewBucketStore(log, bucket), nil
	default:
		return nil, fmt.Errorf("unknown media mode %q (allowed: transient, local, gcs)", cfg.Mode)
	}
}

func extensionFor(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	default:
		return ".bin"
	}
}
