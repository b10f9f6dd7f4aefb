package credential

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/yungbote/creator-studio/internal/domain/user"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

func TestResolveUsesEnvironmentKeyWithoutInteraction(t *testing.T) {
	host := &StaticHost{Key: "picked"}
	r := NewResolver(logger.Nop(), host)
	sess := NewSession()
	sess.SignIn(user.Demo(), "env-key")

	c, err := r.Resolve(context.Background(), sess)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if c.Key != "env-key" || c.Source != SourceEnvironment {
		t.Fatalf("credential: want env-key/environment got=%s/%s", c.Key, c.Source)
	}
	if host.Calls != 0 {
		t.Fatalf("chooser calls: want=0 got=%d", host.Calls)
	}
}

func TestResolveWithoutAnythingIsCredentialMissing(t *testing.T) {
	r := NewResolver(logger.Nop(), nil)
	sess := NewSession()
	sess.SignIn(user.Demo(), "")

	if _, err := r.Resolve(context.Background(), sess); !errors.Is(err, apierr.ErrCredentialMissing) {
		t.Fatalf("Resolve: want CredentialMissing got=%v", err)
	}
	if r.HasCredential(context.Background(), sess) {
		t.Fatalf("HasCredential: want=false got=true")
	}
}

func TestResolvePicksUpHostSelectedKey(t *testing.T) {
	r := NewResolver(logger.Nop(), &StaticHost{Key: "picked", Selected: true})
	sess := NewSession()
	sess.SignIn(user.Demo(), "")

	c, err := r.Resolve(context.Background(), sess)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if c.Source != SourceSelected || sess.Credential().Key != "picked" {
		t.Fatalf("credential: want picked/selected got=%s/%s", c.Key, c.Source)
	}
}

func TestRequirePremiumDeclinedIsDenied(t *testing.T) {
	host := &StaticHost{}
	r := NewResolver(logger.Nop(), host)
	sess := NewSession()
	sess.SignIn(user.Demo(), "")

	_, err := r.RequirePremium(context.Background(), sess)
	if !errors.Is(err, apierr.ErrPremiumCapabilityDenied) {
		t.Fatalf("RequirePremium: want PremiumCapabilityDenied got=%v", err)
	}
	if host.Calls != 1 {
		t.Fatalf("chooser calls: want=1 got=%d", host.Calls)
	}
}

func TestRequirePremiumSelectionOverridesEnvironmentWhenConfigured(t *testing.T) {
	host := &StaticHost{Key: "paid"}
	r := NewResolver(logger.Nop(), host, WithPremiumRequiresSelection(true))
	sess := NewSession()
	sess.SignIn(user.Demo(), "free")

	c, err := r.RequirePremium(context.Background(), sess)
	if err != nil {
		t.Fatalf("RequirePremium: %v", err)
	}
	if c.Key != "paid" || c.Source != SourceSelected {
		t.Fatalf("credential: want paid/selected got=%s/%s", c.Key, c.Source)
	}
	// selection sticks for the session
	if got := sess.Credential().Key; got != "paid" {
		t.Fatalf("session credential: want=paid got=%s", got)
	}
}

func TestSignOutClearsCredential(t *testing.T) {
	r := NewResolver(logger.Nop(), &StaticHost{Key: "paid"})
	sess := NewSession()
	sess.SignIn(user.Demo(), "")
	if ok, err := r.RequestInteractiveSelection(context.Background(), sess); err != nil || !ok {
		t.Fatalf("RequestInteractiveSelection: ok=%v err=%v", ok, err)
	}
	sess.SignOut()
	if c := sess.Credential(); c.Valid() || c.Source != SourceNone {
		t.Fatalf("after sign-out: want no credential got=%s", c.Source)
	}
	if sess.OwnerID() != "" || sess.User() != nil {
		t.Fatalf("after sign-out: user should be cleared")
	}
}

func TestSignOutForgetsHostSelection(t *testing.T) {
	ctx := context.Background()
	host := &StaticHost{Key: "paid-key-of-first-user"}
	r := NewResolver(logger.Nop(), host)
	sess := NewSession()
	sess.SignIn(&user.User{ID: "first", Name: "First"}, "")

	ok, err := r.RequestInteractiveSelection(ctx, sess)
	if err != nil || !ok {
		t.Fatalf("RequestInteractiveSelection: ok=%v err=%v", ok, err)
	}
	if err := r.SignOut(ctx, sess); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if r.HasCredential(ctx, sess) {
		t.Fatalf("HasCredential after sign-out: want=false got=true")
	}

	sess.SignIn(&user.User{ID: "second", Name: "Second"}, "")
	c, err := r.Resolve(ctx, sess)
	if !errors.Is(err, apierr.ErrCredentialMissing) {
		t.Fatalf("Resolve for next user: want CredentialMissing got key=%q source=%s err=%v", c.Key, c.Source, err)
	}
	if r.HasCredential(ctx, sess) {
		t.Fatalf("HasCredential for next user: want=false got=true")
	}
}

func TestTerminalHostForgetsSelection(t *testing.T) {
	ctx := context.Background()
	in, err := os.CreateTemp(t.TempDir(), "key")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := in.WriteString("typed-key\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := in.Seek(0, 0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	defer in.Close()

	host := &TerminalHost{In: in, Out: io.Discard}
	key, ok, err := host.SelectKey(ctx)
	if err != nil || !ok || key != "typed-key" {
		t.Fatalf("SelectKey: want typed-key got key=%q ok=%v err=%v", key, ok, err)
	}
	if _, ok, _ := host.SelectedKey(ctx); !ok {
		t.Fatalf("SelectedKey: want remembered selection")
	}
	if err := host.Forget(ctx); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if key, ok, _ := host.SelectedKey(ctx); ok || key != "" {
		t.Fatalf("SelectedKey after Forget: want none got key=%q ok=%v", key, ok)
	}
}
