// Package observability provides denial and fault audit logging for the
// admission module. It writes one structured record per event to the
// logger and fans the same event out to the audit publisher when one is
// configured.
package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gatekeeper/internal/admission/models"
	"gatekeeper/pkg/platform/audit"
	"gatekeeper/pkg/requestcontext"
)

// AuditPublisher is re-exported so callers don't import the audit package
// just to pass a sink through.
type AuditPublisher = audit.Publisher

// LogDenial records one denied request: structured log line plus audit event.
func LogDenial(
	ctx context.Context,
	logger *slog.Logger,
	publisher AuditPublisher,
	identity models.Identity,
	verdict models.Verdict,
	req models.RequestDescriptor,
) {
	requestID := requestcontext.RequestID(ctx)

	if logger != nil {
		logger.InfoContext(ctx, "request denied",
			"event", "admission_denied",
			"log_type", "audit",
			"identity", identity.String(),
			"role", string(identity.Role),
			"reason", string(verdict.Reason),
			"message", verdict.Message,
			"path", req.Path,
			"method", req.Method,
			"origin", req.Origin,
			"request_id", requestID,
		)
	}

	emit(ctx, logger, publisher, audit.Event{
		ID:        uuid.NewString(),
		Timestamp: requestcontext.Now(ctx),
		Action:    "admission_denied",
		Subject:   identity.String(),
		Role:      string(identity.Role),
		Reason:    string(verdict.Reason),
		Message:   verdict.Message,
		Path:      req.Path,
		Origin:    req.Origin,
		RequestID: requestID,
		Severity:  audit.SeverityWarning,
	})
}

// LogFault records an engine-internal fault with full detail. The boundary
// returns a generic response; this is the only place the failure detail
// lands.
func LogFault(
	ctx context.Context,
	logger *slog.Logger,
	publisher AuditPublisher,
	err error,
	req models.RequestDescriptor,
) {
	requestID := requestcontext.RequestID(ctx)

	if logger != nil {
		logger.ErrorContext(ctx, "admission pipeline fault",
			"event", "admission_fault",
			"log_type", "audit",
			"error", err,
			"path", req.Path,
			"method", req.Method,
			"origin", req.Origin,
			"request_id", requestID,
		)
	}

	emit(ctx, logger, publisher, audit.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    "admission_fault",
		Subject:   req.Origin,
		Role:      string(req.Role),
		Reason:    "internal_fault",
		Path:      req.Path,
		Origin:    req.Origin,
		RequestID: requestID,
		Severity:  audit.SeverityCritical,
	})
}

func emit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
