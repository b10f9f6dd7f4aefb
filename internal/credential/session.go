package credential

import (
	"strings"
	"sync"

	"github.com/yungbote/creator-studio/internal/domain/user"
)

type Source string

const (
	SourceNone        Source = "none"
	SourceEnvironment Source = "environment"
	SourceSelected    Source = "selected"
)

// Credential is the API key used for remote generation calls.
type Credential struct {
	Key    string
	Source Source
}

func (c Credential) Valid() bool { return strings.TrimSpace(c.Key) != "" }

// Session is the signed-in user plus the credential active for them.
// The credential lives only in memory and is dropped on SignOut.
type Session struct {
	mu   sync.RWMutex
	user *user.User
	cred Credential
}

func NewSession() *Session {
	return &Session{cred: Credential{Source: SourceNone}}
}

// SignIn replaces the current user. A non-empty envKey becomes the active credential.
func (s *Session) SignIn(u *user.User, envKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
	s.cred = Credential{Source: SourceNone}
	if k := strings.TrimSpace(envKey); k != "" {
		s.cred = Credential{Key: k, Source: SourceEnvironment}
	}
}

func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.cred = Credential{Source: SourceNone}
}

func (s *Session) User() *user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// OwnerID is the partition key for persisted data, "" when signed out.
func (s *Session) OwnerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

func (s *Session) Credential() Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred
}

func (s *Session) setCredential(c Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = c
}
