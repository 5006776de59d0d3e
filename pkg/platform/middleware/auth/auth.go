// Package auth resolves caller role and subject claims from bearer tokens.
//
// Token issuance and session management live in the upstream identity
// service; this middleware only verifies the signature and copies the
// resolved claims into the request context. Requests without a usable token
// proceed anonymously — downstream admission degrades them to the guest
// tier rather than rejecting here.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"gatekeeper/pkg/requestcontext"
)

// Claims are the token fields admission cares about.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ResolveRole returns middleware that extracts role and subject claims from
// an optional Authorization bearer token signed with the given HMAC key.
// Invalid tokens are logged and treated as absent.
func ResolveRole(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims := &Claims{}
			_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return signingKey, nil
			})
			if err != nil {
				logger.WarnContext(r.Context(), "ignoring unusable bearer token", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := requestcontext.WithRole(r.Context(), claims.Role)
			if claims.Subject != "" {
				ctx = requestcontext.WithSubject(ctx, claims.Subject)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
