package studio

import (
	"context"

	types "github.com/yungbote/creator-studio/internal/domain"
	"github.com/yungbote/creator-studio/internal/domain/user"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/session"
)

// RestoreSession signs the persisted user back in, if there is one.
func (s *studioService) RestoreSession(ctx context.Context) (*types.User, error) {
	if s.deps.SessionStore == nil {
		return nil, nil
	}
	u, err := s.deps.SessionStore.Load()
	if err != nil || u == nil {
		return nil, err
	}
	s.deps.Session.SignIn(u, s.opts.EnvKey)
	s.log.Info("Session restored", "user_id", u.ID, "provider", u.Provider)
	return s.deps.Session.User(), nil
}

func (s *studioService) SignInDemo(ctx context.Context) (*types.User, error) {
	return s.signIn(user.Demo())
}

func (s *studioService) SignInFederated(ctx context.Context, idToken string) (*types.User, error) {
	u, err := session.ProfileFromIDToken(idToken, s.opts.Audience, s.opts.Now())
	if err != nil {
		return nil, err
	}
	return s.signIn(u)
}

func (s *studioService) signIn(u *types.User) (*types.User, error) {
	if !u.Valid() {
		return nil, apierr.Newf(apierr.KindInvalidRequest, "user has no id")
	}
	s.deps.Session.SignIn(u, s.opts.EnvKey)
	if s.deps.SessionStore != nil {
		if err := s.deps.SessionStore.Save(u); err != nil {
			// still signed in for this run
			s.log.Warn("Could not persist session", "error", err)
		}
	}
	s.log.Info("Signed in", "user_id", u.ID, "provider", u.Provider)
	return s.deps.Session.User(), nil
}

// SignOut drops the user and the active credential.
func (s *studioService) SignOut(ctx context.Context) error {
	owner := s.deps.Session.OwnerID()
	if err := s.deps.Resolver.SignOut(ctx, s.deps.Session); err != nil {
		return err
	}
	if s.deps.SessionStore != nil {
		if err := s.deps.SessionStore.Clear(); err != nil {
			return err
		}
	}
	s.log.Info("Signed out", "user_id", owner)
	return nil
}

func (s *studioService) CurrentUser() *types.User { return s.deps.Session.User() }

func (s *studioService) owner() (string, error) {
	id := s.deps.Session.OwnerID()
	if id == "" {
		return "", apierr.Newf(apierr.KindInvalidRequest, "not signed in")
	}
	return id, nil
}
