package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/policy"
	"gatekeeper/internal/admission/service"
	"gatekeeper/internal/admission/signal"
	"gatekeeper/internal/admission/store/window"
	"gatekeeper/pkg/platform/audit"
	"gatekeeper/pkg/requestcontext"
)

type stubAdmission struct {
	identity models.Identity
	verdict  models.Verdict
	err      error
	panics   bool
}

func (s *stubAdmission) Evaluate(context.Context, models.RequestDescriptor) (models.Identity, models.Verdict, error) {
	if s.panics {
		panic("pipeline exploded")
	}
	return s.identity, s.verdict, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdmitAllow(t *testing.T) {
	gate := New(&stubAdmission{
		verdict: models.Verdict{
			Outcome: models.OutcomeAllow,
			Quota: models.QuotaResult{
				Allowed:   true,
				Limit:     5,
				Remaining: 4,
				ResetAt:   time.Unix(1750000000, 0),
			},
		},
	}, testLogger())

	rec := httptest.NewRecorder()
	gate.Admit(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1750000000", rec.Header().Get("X-RateLimit-Reset"))
}

func TestAdmitDeny(t *testing.T) {
	tests := []struct {
		name           string
		verdict        models.Verdict
		wantReason     string
		wantMessage    string
		wantRetryAfter string
	}{
		{
			name: "rate limit denial carries retry hint",
			verdict: models.Verdict{
				Outcome: models.OutcomeDeny,
				Reason:  models.ReasonRateLimit,
				Message: "Guest request limit reached: 5 per minute.",
				Quota:   models.QuotaResult{Limit: 5, RetryAfter: 42},
			},
			wantReason:     "rate_limit",
			wantMessage:    "Guest request limit reached: 5 per minute.",
			wantRetryAfter: "42",
		},
		{
			name: "bot denial",
			verdict: models.Verdict{
				Outcome: models.OutcomeDeny,
				Reason:  models.ReasonBot,
				Message: "Automated traffic detected. This request has been blocked.",
				Quota:   models.QuotaResult{Allowed: true, Limit: 5, Remaining: 4},
			},
			wantReason:  "bot",
			wantMessage: "Automated traffic detected. This request has been blocked.",
		},
		{
			name: "shield denial",
			verdict: models.Verdict{
				Outcome: models.OutcomeDeny,
				Reason:  models.ReasonShield,
				Message: "Request blocked by anomaly protection.",
				Quota:   models.QuotaResult{Allowed: true, Limit: 5, Remaining: 4},
			},
			wantReason:  "shield",
			wantMessage: "Request blocked by anomaly protection.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := New(&stubAdmission{verdict: tt.verdict}, testLogger())

			rec := httptest.NewRecorder()
			gate.Admit(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, tt.wantRetryAfter, rec.Header().Get("Retry-After"))

			var body DenialResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Forbidden", body.Error)
			assert.Equal(t, tt.wantReason, body.Reason)
			assert.Equal(t, tt.wantMessage, body.Message)
		})
	}
}

func TestAdmitInternalFault(t *testing.T) {
	assertGenericFault := func(t *testing.T, rec *httptest.ResponseRecorder) {
		t.Helper()
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var body FaultResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Internal server error", body.Error)
		assert.Equal(t, "An internal error occurred.", body.Message)
		// The raw failure must never reach the caller.
		assert.NotContains(t, rec.Body.String(), "redis")
		assert.NotContains(t, rec.Body.String(), "exploded")
	}

	t.Run("evaluation error", func(t *testing.T) {
		gate := New(&stubAdmission{err: errors.New("redis: connection refused")}, testLogger())

		rec := httptest.NewRecorder()
		gate.Admit(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

		assertGenericFault(t, rec)
	})

	t.Run("pipeline panic", func(t *testing.T) {
		gate := New(&stubAdmission{panics: true}, testLogger())

		rec := httptest.NewRecorder()
		gate.Admit(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

		assertGenericFault(t, rec)
	})
}

func TestAdmitDisabled(t *testing.T) {
	gate := New(&stubAdmission{
		verdict: models.Verdict{Outcome: models.OutcomeDeny, Reason: models.ReasonBot},
	}, testLogger(), WithDisabled(true))

	rec := httptest.NewRecorder()
	gate.Admit(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestAdmitAuditsDenials(t *testing.T) {
	publisher := audit.NewMemoryPublisher(16)
	gate := New(&stubAdmission{
		identity: models.Identity{Role: models.RoleGuest, Key: "203.0.113.7"},
		verdict: models.Verdict{
			Outcome: models.OutcomeDeny,
			Reason:  models.ReasonRateLimit,
			Message: "Guest request limit reached: 5 per minute.",
			Quota:   models.QuotaResult{Limit: 5, RetryAfter: 10},
		},
	}, testLogger(), WithAuditPublisher(publisher))

	rec := httptest.NewRecorder()
	gate.Admit(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

	events := publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "rate_limit", events[0].Reason)
	assert.Equal(t, "guest", events[0].Role)
	assert.Equal(t, audit.SeverityWarning, events[0].Severity)
}

// withRequest pins caller identity and request time the way the outer
// context middleware would.
func withRequest(clientIP string, at time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithClientIP(r.Context(), clientIP)
			ctx = requestcontext.WithTime(ctx, at)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// withAuthenticated additionally carries the resolved role and subject, the
// way the auth middleware would for a valid bearer token.
func withAuthenticated(role, subject, clientIP string, at time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithRole(r.Context(), role)
			ctx = requestcontext.WithSubject(ctx, subject)
			ctx = requestcontext.WithClientIP(ctx, clientIP)
			ctx = requestcontext.WithTime(ctx, at)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type cleanBot struct{}

func (cleanBot) Classify(context.Context, models.RequestDescriptor) (models.BotSignal, error) {
	return models.BotSignal{Confidence: 0.05, Provider: "stub"}, nil
}

type cleanShield struct{}

func (cleanShield) Inspect(context.Context, models.RequestDescriptor) (models.ShieldSignal, error) {
	return models.ShieldSignal{Provider: "stub"}, nil
}

// TestGuestQuotaScenario walks the full pipeline with the real store,
// evaluator, engine and service: a guest gets five requests per minute,
// the sixth is a 403 that does not consume quota, and the window frees up
// once the oldest admission expires.
func TestGuestQuotaScenario(t *testing.T) {
	eval, err := signal.New(window.NewMemoryStore(), cleanBot{}, cleanShield{})
	require.NoError(t, err)
	svc, err := service.New(policy.Defaults(), eval)
	require.NoError(t, err)

	gate := New(svc, testLogger())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	do := func(offset time.Duration) *httptest.ResponseRecorder {
		handler := withRequest("203.0.113.7", base.Add(offset))(gate.Admit(okHandler()))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
		return rec
	}

	for i := 0; i < 5; i++ {
		rec := do(time.Duration(i) * time.Second)
		require.Equal(t, http.StatusOK, rec.Code, "request %d should be admitted", i+1)
	}

	rec := do(10 * time.Second)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body DenialResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit", body.Reason)
	assert.Equal(t, "Guest request limit reached: 5 per minute.", body.Message)

	// Denied attempts recorded nothing, so one slot opens as soon as the
	// first admission leaves the trailing minute.
	rec = do(61 * time.Second)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A different caller has an untouched window throughout.
	other := withRequest("198.51.100.9", base.Add(10*time.Second))(gate.Admit(okHandler()))
	otherRec := httptest.NewRecorder()
	other.ServeHTTP(otherRec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusOK, otherRec.Code)
}

// TestAdminQuotaScenario drives the admin tier through the same full
// pipeline: twenty requests per minute succeed, the twenty-first is denied
// with the admin-specific message.
func TestAdminQuotaScenario(t *testing.T) {
	eval, err := signal.New(window.NewMemoryStore(), cleanBot{}, cleanShield{})
	require.NoError(t, err)
	svc, err := service.New(policy.Defaults(), eval)
	require.NoError(t, err)

	gate := New(svc, testLogger())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	do := func(offset time.Duration) *httptest.ResponseRecorder {
		handler := withAuthenticated("admin", "admin-1", "203.0.113.80", base.Add(offset))(gate.Admit(okHandler()))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
		return rec
	}

	for i := 0; i < 20; i++ {
		rec := do(time.Duration(i) * time.Second)
		require.Equal(t, http.StatusOK, rec.Code, "request %d should be admitted", i+1)
	}

	rec := do(30 * time.Second)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "20", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	var body DenialResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit", body.Reason)
	assert.Equal(t, "Admin request limit reached: 20 per minute.", body.Message)

	// The window is keyed by subject, so slots free as the earliest
	// admissions age out.
	rec = do(61 * time.Second)
	assert.Equal(t, http.StatusOK, rec.Code)
}
