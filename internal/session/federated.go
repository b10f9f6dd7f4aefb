package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/creator-studio/internal/domain/user"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
)

type profileClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// ProfileFromIDToken reads the display profile out of an OpenID ID token.
//
// The signature is not verified: the profile only labels the UI and partitions local
// data, and every remote call is authorized by the API key instead. Expiry, issuer and
// audience (when audience is non-empty) are still checked.
func ProfileFromIDToken(raw string, audience string, now time.Time) (*user.User, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apierr.Newf(apierr.KindInvalidRequest, "identity token is required")
	}
	var claims profileClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, apierr.New(apierr.KindInvalidRequest, "malformed identity token", err)
	}

	opts := []jwt.ParserOption{jwt.WithTimeFunc(func() time.Time { return now }), jwt.WithIssuedAt()}
	if a := strings.TrimSpace(audience); a != "" {
		opts = append(opts, jwt.WithAudience(a))
	}
	if err := jwt.NewValidator(opts...).Validate(claims); err != nil {
		return nil, apierr.New(apierr.KindInvalidRequest, "identity token rejected", err)
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return nil, apierr.Newf(apierr.KindInvalidRequest, "identity token has no subject")
	}
	issuer := strings.TrimSpace(claims.Issuer)
	if issuer == "" {
		issuer = "federated"
	}
	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = strings.TrimSpace(claims.Email)
	}
	if name == "" {
		name = sub
	}
	return &user.User{
		ID:       fmt.Sprintf("%s|%s", issuerTag(issuer), sub),
		Name:     name,
		Email:    strings.TrimSpace(claims.Email),
		PhotoURL: strings.TrimSpace(claims.Picture),
		Provider: issuer,
	}, nil
}

func issuerTag(iss string) string {
	iss = strings.TrimPrefix(strings.TrimPrefix(iss, "https://"), "http://")
	return strings.TrimSuffix(iss, "/")
}
