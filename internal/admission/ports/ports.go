// Package ports defines shared interfaces for the admission module.
// Interfaces live here when consumed by multiple packages to avoid duplication.
package ports

import (
	"context"
	"time"

	"gatekeeper/internal/admission/models"
	"gatekeeper/pkg/platform/audit"
)

// AuditPublisher emits audit events for security-relevant outcomes.
type AuditPublisher = audit.Publisher

// WindowStore manages sliding-window admission counters.
//
// Allow is atomic per key: the expiry sweep, the count comparison and the
// timestamp record happen under one critical section, so two concurrent
// requests can never both take the last slot. A denied request records
// nothing.
type WindowStore interface {
	// Allow checks whether one request fits in the key's trailing window
	// and records it if so.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.QuotaResult, error)

	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error

	// CurrentCount returns the number of admissions currently in window.
	CurrentCount(ctx context.Context, key string) (int, error)
}

// BotDetector estimates how likely a request is automated traffic.
// Implementations may call an external classifier; failures degrade to an
// unflagged signal at the evaluator, never to a denial.
type BotDetector interface {
	Classify(ctx context.Context, req models.RequestDescriptor) (models.BotSignal, error)
}

// ShieldDetector flags anomalous requests (generic attack shielding).
type ShieldDetector interface {
	Inspect(ctx context.Context, req models.RequestDescriptor) (models.ShieldSignal, error)
}
