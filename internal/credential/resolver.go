package credential

import (
	"context"

	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

type Resolver struct {
	log  *logger.Logger
	host Host
	// premiumRequiresSelection makes an environment key insufficient for premium
	// calls; the user must pick a key from a paid project through the host.
	premiumRequiresSelection bool
}

type Option func(*Resolver)

func WithPremiumRequiresSelection(v bool) Option {
	return func(r *Resolver) { r.premiumRequiresSelection = v }
}

// NewResolver builds a resolver. host may be nil when no interactive flow exists.
func NewResolver(log *logger.Logger, host Host, opts ...Option) *Resolver {
	r := &Resolver{log: log.With("service", "CredentialResolver"), host: host}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) HasCredential(ctx context.Context, sess *Session) bool {
	_, err := r.Resolve(ctx, sess)
	return err == nil
}

// Resolve returns the active credential without user interaction.
func (r *Resolver) Resolve(ctx context.Context, sess *Session) (Credential, error) {
	if c := sess.Credential(); c.Valid() {
		return c, nil
	}
	if c, ok := r.hostSelected(ctx, sess); ok {
		return c, nil
	}
	return Credential{}, apierr.Newf(apierr.KindCredentialMissing, "API key missing")
}

// SignOut clears the session and makes the host forget its selection, so a key
// picked by one user is never handed to the next.
func (r *Resolver) SignOut(ctx context.Context, sess *Session) error {
	sess.SignOut()
	if r.host == nil {
		return nil
	}
	if err := r.host.Forget(ctx); err != nil {
		r.log.Warn("Host could not forget the selected key", "error", err)
		return err
	}
	return nil
}

// RequestInteractiveSelection runs the host chooser. A chosen key replaces any
// active credential for the rest of the session.
func (r *Resolver) RequestInteractiveSelection(ctx context.Context, sess *Session) (bool, error) {
	if r.host == nil {
		return false, apierr.Newf(apierr.KindCredentialMissing, "no interactive key selection available")
	}
	key, ok, err := r.host.SelectKey(ctx)
	if err != nil {
		r.log.Warn("Key selection failed", "error", err)
		return false, err
	}
	if !ok {
		r.log.Info("Key selection declined")
		return false, nil
	}
	sess.setCredential(Credential{Key: key, Source: SourceSelected})
	r.log.Info("Key selected")
	return true, nil
}

// RequirePremium is checked before any premium remote call. A declined selection
// yields PremiumCapabilityDenied and the caller must not reach the remote service.
func (r *Resolver) RequirePremium(ctx context.Context, sess *Session) (Credential, error) {
	if c, ok := r.premiumCredential(ctx, sess); ok {
		return c, nil
	}
	if r.host == nil {
		return Credential{}, apierr.Newf(apierr.KindCredentialMissing, "a paid API key is required and no key selection is available")
	}
	ok, err := r.RequestInteractiveSelection(ctx, sess)
	if err != nil {
		return Credential{}, err
	}
	if !ok {
		return Credential{}, apierr.Newf(apierr.KindPremiumCapabilityDenied, "a paid API key was not selected")
	}
	return sess.Credential(), nil
}

func (r *Resolver) premiumCredential(ctx context.Context, sess *Session) (Credential, bool) {
	c := sess.Credential()
	if !c.Valid() {
		var ok bool
		if c, ok = r.hostSelected(ctx, sess); !ok {
			return Credential{}, false
		}
	}
	if r.premiumRequiresSelection && c.Source != SourceSelected {
		return Credential{}, false
	}
	return c, true
}

func (r *Resolver) hostSelected(ctx context.Context, sess *Session) (Credential, bool) {
	if r.host == nil {
		return Credential{}, false
	}
	key, ok, err := r.host.SelectedKey(ctx)
	if err != nil {
		r.log.Warn("Key capability query failed", "error", err)
		return Credential{}, false
	}
	if !ok || key == "" {
		return Credential{}, false
	}
	c := Credential{Key: key, Source: SourceSelected}
	sess.setCredential(c)
	return c, true
}
