// Package policy holds the immutable role → quota mapping.
//
// The table is populated once at process start and validated for full role
// coverage before the server accepts traffic. A missing policy is a
// configuration error, never a per-request failure.
package policy

import (
	"fmt"
	"time"

	"gatekeeper/internal/admission/models"
	dErrors "gatekeeper/pkg/domain-errors"
)

// Table maps every role to its admission policy.
type Table struct {
	policies map[models.Role]models.Policy
}

// Defaults returns the built-in per-role policies.
func Defaults() *Table {
	return &Table{policies: map[models.Role]models.Policy{
		models.RoleAdmin: {
			Window:      time.Minute,
			MaxRequests: 20,
			Message:     "Admin request limit reached: 20 per minute.",
		},
		models.RoleUser: {
			Window:      time.Minute,
			MaxRequests: 10,
			Message:     "User request limit reached: 10 per minute.",
		},
		models.RoleGuest: {
			Window:      time.Minute,
			MaxRequests: 5,
			Message:     "Guest request limit reached: 5 per minute.",
		},
	}}
}

// New builds a table from explicit policies, typically config overrides
// layered on Defaults.
func New(policies map[models.Role]models.Policy) *Table {
	copied := make(map[models.Role]models.Policy, len(policies))
	for role, p := range policies {
		copied[role] = p
	}
	return &Table{policies: copied}
}

// Set replaces the policy for one role. Only valid before Validate is
// called during startup; the table is read-only once serving.
func (t *Table) Set(role models.Role, p models.Policy) {
	t.policies[role] = p
}

// Validate enforces that every role has a usable policy. Callers abort
// startup on error.
func (t *Table) Validate() error {
	for _, role := range models.AllRoles() {
		p, ok := t.policies[role]
		if !ok {
			return dErrors.New(dErrors.CodeConfiguration,
				fmt.Sprintf("no admission policy configured for role %q", role))
		}
		if p.MaxRequests <= 0 {
			return dErrors.New(dErrors.CodeConfiguration,
				fmt.Sprintf("policy for role %q has non-positive max requests", role))
		}
		if p.Window <= 0 {
			return dErrors.New(dErrors.CodeConfiguration,
				fmt.Sprintf("policy for role %q has non-positive window", role))
		}
		if p.Message == "" {
			return dErrors.New(dErrors.CodeConfiguration,
				fmt.Sprintf("policy for role %q has no denial message", role))
		}
	}
	return nil
}

// Lookup returns the policy for a role. The bool is false only when the
// table was not validated, which indicates a wiring bug.
func (t *Table) Lookup(role models.Role) (models.Policy, bool) {
	p, ok := t.policies[role]
	return p, ok
}
