package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/creator-studio/internal/platform/gcp"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

const localPrefix = "media://"

// LocalStore keeps media as files under root, one directory per owner.
type LocalStore struct {
	log  *logger.Logger
	root string
}

func NewLocalStore(log *logger.Logger, root string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local media store requires a directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{log: log.With("service", "LocalMediaStore"), root: root}, nil
}

func (s *LocalStore) Mode() Mode { return ModeLocal }

func (s *LocalStore) Put(ctx context.Context, ownerID string, data []byte, mime string) (string, error) {
	rel := filepath.ToSlash(filepath.Join(ownerDir(ownerID), uuid.NewString()+extensionFor(mime)))
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create owner media dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write media: %w", err)
	}
	return localPrefix + rel, nil
}

func (s *LocalStore) Open(ctx context.Context, ownerID string, handle string) ([]byte, string, error) {
	full, err := s.resolveOwned(ownerID, handle)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", ErrUnknownHandle
	}
	if err != nil {
		return nil, "", fmt.Errorf("read media: %w", err)
	}
	return data, gcp.ContentTypeForKey(full), nil
}

func (s *LocalStore) Release(ctx context.Context, ownerID string, handle string) error {
	full, err := s.resolveOwned(ownerID, handle)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove media: %w", err)
	}
	return nil
}

// Path returns the file behind a handle, for players that want a path.
func (s *LocalStore) Path(handle string) (string, error) { return s.resolve(handle) }

func (s *LocalStore) resolve(handle string) (string, error) {
	rel, ok := strings.CutPrefix(handle, localPrefix)
	if !ok || rel == "" {
		return "", ErrUnknownHandle
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrUnknownHandle
	}
	return filepath.Join(s.root, clean), nil
}

// resolveOwned is resolve restricted to the owner's directory.
func (s *LocalStore) resolveOwned(ownerID, handle string) (string, error) {
	full, err := s.resolve(handle)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.root, full)
	if err != nil || filepath.Dir(rel) != ownerDir(ownerID) {
		return "", ErrUnknownHandle
	}
	return full, nil
}

func ownerDir(ownerID string) string {
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:])[:16]
}
