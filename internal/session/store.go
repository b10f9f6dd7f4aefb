package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/creator-studio/internal/domain/user"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

// Store keeps the signed-in user across restarts. Credentials never reach disk.
type Store struct {
	path string
	log  *logger.Logger
}

type fileFormat struct {
	Version  int        `yaml:"version"`
	SignedIn time.Time  `yaml:"signed_in_at"`
	User     *user.User `yaml:"user"`
}

func NewStore(log *logger.Logger, path string) *Store {
	return &Store{path: strings.TrimSpace(path), log: log.With("service", "SessionStore")}
}

// Load returns the persisted user, or nil when nobody is signed in.
// A corrupt file is treated as signed out.
func (s *Store) Load() (*user.User, error) {
	if s.path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(b, &f); err != nil {
		s.log.Warn("Ignoring unreadable session file", "path", s.path, "error", err)
		return nil, nil
	}
	if !f.User.Valid() {
		return nil, nil
	}
	return f.User, nil
}

func (s *Store) Save(u *user.User) error {
	if s.path == "" {
		return nil
	}
	if !u.Valid() {
		return fmt.Errorf("save session: user id is required")
	}
	b, err := yaml.Marshal(fileFormat{Version: 1, SignedIn: time.Now().UTC(), User: u})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

func (s *Store) Clear() error {
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
