// Package middleware adapts admission verdicts to the HTTP boundary.
//
// Allow continues the chain untouched. Deny becomes a 403 with a
// machine-readable reason tag and the policy's (or detector's) message.
// Any engine-internal fault — store failure, panic, wiring bug — is caught
// here and mapped to a generic 500: full detail is logged for operators,
// nothing leaks to the caller.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"gatekeeper/internal/admission/identity"
	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/observability"
	"gatekeeper/pkg/platform/httputil"
)

// Admission evaluates one request and returns its verdict.
type Admission interface {
	Evaluate(ctx context.Context, req models.RequestDescriptor) (models.Identity, models.Verdict, error)
}

// Middleware is the admission boundary adapter.
type Middleware struct {
	admission Admission
	logger    *slog.Logger
	publisher observability.AuditPublisher
	disabled  bool
}

// Option configures the middleware.
type Option func(*Middleware)

// WithDisabled bypasses admission entirely (testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithAuditPublisher wires a sink for denial and fault events.
func WithAuditPublisher(publisher observability.AuditPublisher) Option {
	return func(m *Middleware) {
		m.publisher = publisher
	}
}

// New constructs the middleware.
func New(admission Admission, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		admission: admission,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled && logger != nil {
		logger.Info("admission control disabled")
	}
	return m
}

// DenialResponse is the 403 body contract.
type DenialResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// FaultResponse is the generic 500 body contract.
type FaultResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Admit evaluates every request through the admission pipeline.
func (m *Middleware) Admit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		req := identity.Describe(ctx, r.URL.Path, r.Method)

		// A panic anywhere in the pipeline is an internal fault, not a leak.
		defer func() {
			if rec := recover(); rec != nil {
				observability.LogFault(ctx, m.logger, m.publisher, fmt.Errorf("panic: %v", rec), req)
				writeInternalFault(w)
			}
		}()

		id, verdict, err := m.admission.Evaluate(ctx, req)
		if err != nil {
			observability.LogFault(ctx, m.logger, m.publisher, err, req)
			writeInternalFault(w)
			return
		}

		addRateLimitHeaders(w, verdict.Quota)

		if !verdict.Allowed() {
			observability.LogDenial(ctx, m.logger, m.publisher, id, verdict, req)
			writeDenial(w, verdict)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, quota models.QuotaResult) {
	if quota.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(quota.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(quota.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(quota.ResetAt.Unix(), 10))
}

func writeDenial(w http.ResponseWriter, verdict models.Verdict) {
	if verdict.Reason == models.ReasonRateLimit && verdict.Quota.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(verdict.Quota.RetryAfter))
	}
	httputil.WriteJSON(w, http.StatusForbidden, &DenialResponse{
		Error:   "Forbidden",
		Reason:  string(verdict.Reason),
		Message: verdict.Message,
	})
}

func writeInternalFault(w http.ResponseWriter) {
	httputil.WriteJSON(w, http.StatusInternalServerError, &FaultResponse{
		Error:   "Internal server error",
		Message: "An internal error occurred.",
	})
}
