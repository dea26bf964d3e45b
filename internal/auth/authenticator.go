package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Identity is who a connection belongs to, as established at upgrade time.
type Identity struct {
	Subject     string
	DisplayName string
}

// Directory resolves display names for token subjects.
type Directory interface {
	DisplayName(ctx context.Context, subject string) (string, error)
}

type Authenticator struct {
	verifier *JWTVerifier
	dir      Directory
}

// NewAuthenticator wires a verifier with an optional directory (nil disables lookups).
func NewAuthenticator(v *JWTVerifier, dir Directory) *Authenticator {
	return &Authenticator{verifier: v, dir: dir}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	claims, err := a.verifier.Verify(token)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{Subject: claims.Subject, DisplayName: strings.TrimSpace(claims.Name)}
	if id.DisplayName != "" || a.dir == nil {
		if id.DisplayName == "" {
			id.DisplayName = id.Subject
		}
		return id, nil
	}

	name, err := a.dir.DisplayName(ctx, id.Subject)
	switch {
	case err == nil && name != "":
		id.DisplayName = name
	case err != nil && !errors.Is(err, ErrUnknownUser):
		slog.WarnContext(ctx, "display name lookup failed", "sub", id.Subject, "err", err)
		fallthrough
	default:
		id.DisplayName = id.Subject
	}
	return id, nil
}

// TokenFromRequest reads the access token from the access_token query
// parameter (browsers cannot set headers on WebSocket upgrades) or from a
// Bearer Authorization header.
func TokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("access_token")); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
