package models

import (
	"time"
)

// Role classifies the caller for policy selection. It is resolved by the
// auth collaborator before admission runs and never mutated here.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	// RoleGuest is the anonymous/unauthenticated tier and the default for
	// any caller whose role cannot be resolved.
	RoleGuest Role = "guest"
)

// AllRoles lists every role the policy table must cover. Startup validation
// iterates this so adding a role without a policy fails fast.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleUser, RoleGuest}
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}

// ParseRole maps a raw role claim to a Role, degrading unknown or empty
// values to the least-privileged tier.
func ParseRole(s string) Role {
	if r := Role(s); r.IsValid() {
		return r
	}
	return RoleGuest
}

// Identity is the stable key under which request quotas are tracked:
// the caller role plus the authenticated subject when present, otherwise
// the caller network address.
type Identity struct {
	Role Role
	Key  string
}

// NewIdentity builds an Identity, preferring the authenticated subject over
// the network origin.
func NewIdentity(role Role, subject, origin string) Identity {
	key := subject
	if key == "" {
		key = origin
	}
	return Identity{Role: role, Key: key}
}

// String renders the counting key with sanitized segments so
// caller-controlled identifiers cannot collide with adjacent buckets.
func (i Identity) String() string {
	return "rl:" + SanitizeKeySegment(string(i.Role)) + ":" + SanitizeKeySegment(i.Key)
}

// Policy is the per-role admission quota. Loaded once at startup and
// read-only afterwards.
type Policy struct {
	Window      time.Duration
	MaxRequests int
	Message     string
}

// Reason tags why a request was denied.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonBot       Reason = "bot"
	ReasonShield    Reason = "shield"
	ReasonRateLimit Reason = "rate_limit"
)

// Outcome is the admission result.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
)

// QuotaResult is the outcome of a sliding-window check.
type QuotaResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// BotSignal is the automated-traffic classification for one request.
type BotSignal struct {
	Flagged    bool
	Confidence float64
	Provider   string
}

// ShieldSignal is the anomaly-shield classification for one request.
type ShieldSignal struct {
	Anomaly  bool
	Provider string
}

// Signals bundles the three independent signal sources consumed by the
// decision engine. All three are populated before a verdict is produced.
type Signals struct {
	Bot    BotSignal
	Shield ShieldSignal
	Quota  QuotaResult
}

// Verdict is the single allow/deny-with-reason outcome produced per request.
// Reason is set only when Outcome is OutcomeDeny.
type Verdict struct {
	Outcome Outcome
	Reason  Reason
	Message string
	Quota   QuotaResult
}

// Allowed reports whether the request may proceed.
func (v Verdict) Allowed() bool {
	return v.Outcome == OutcomeAllow
}

// RequestDescriptor is the boundary input to admission: everything the
// pipeline needs to know about one inbound request.
type RequestDescriptor struct {
	Origin    string
	Subject   string
	Role      Role
	Path      string
	Method    string
	UserAgent string
}

// Identity is the counting identity the request is tracked under. This is
// the single place descriptor fields turn into a window key.
func (r RequestDescriptor) Identity() Identity {
	return NewIdentity(r.Role, r.Subject, r.Origin)
}
