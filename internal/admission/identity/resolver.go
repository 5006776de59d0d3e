// Package identity derives the stable counting identity for a request.
package identity

import (
	"context"

	"gatekeeper/internal/admission/models"
	"gatekeeper/pkg/requestcontext"
)

// Resolve returns the caller's role and counting identity from request
// context. It never fails: a missing or unknown role claim degrades to the
// least-privileged guest tier, and a missing subject falls back to the
// caller network address.
func Resolve(ctx context.Context) (models.Role, models.Identity) {
	role := models.ParseRole(requestcontext.Role(ctx))
	subject := requestcontext.Subject(ctx)
	origin := requestcontext.ClientIP(ctx)

	// Anonymous callers are always counted as guests, even if a stale
	// role claim survived without a subject.
	if subject == "" && requestcontext.Role(ctx) == "" {
		role = models.RoleGuest
	}

	return role, models.NewIdentity(role, subject, origin)
}

// Describe assembles the boundary request descriptor used by detectors and
// the decision pipeline.
func Describe(ctx context.Context, path, method string) models.RequestDescriptor {
	role, _ := Resolve(ctx)
	return models.RequestDescriptor{
		Origin:    requestcontext.ClientIP(ctx),
		Subject:   requestcontext.Subject(ctx),
		Role:      role,
		Path:      path,
		Method:    method,
		UserAgent: requestcontext.UserAgent(ctx),
	}
}
