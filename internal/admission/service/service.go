// Package service composes the admission pipeline: policy lookup, signal
// gathering, and the decision engine, behind one Evaluate call consumed by
// the boundary middleware.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gatekeeper/internal/admission/engine"
	"gatekeeper/internal/admission/metrics"
	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/policy"
	"gatekeeper/internal/admission/signal"
	dErrors "gatekeeper/pkg/domain-errors"
)

// Service evaluates admission for inbound requests.
type Service struct {
	policies  *policy.Table
	evaluator *signal.Evaluator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics attaches admission metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs the admission service. The policy table must already be
// validated; construction re-checks coverage so a wiring mistake surfaces
// at startup rather than mid-request.
func New(policies *policy.Table, evaluator *signal.Evaluator, opts ...Option) (*Service, error) {
	if policies == nil {
		return nil, errors.New("policy table is required")
	}
	if evaluator == nil {
		return nil, errors.New("signal evaluator is required")
	}
	if err := policies.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		policies:  policies,
		evaluator: evaluator,
		tracer:    otel.Tracer("gatekeeper/admission"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Evaluate produces exactly one verdict for the request. An error means an
// engine-internal fault; the boundary maps it to a generic response.
func (s *Service) Evaluate(ctx context.Context, req models.RequestDescriptor) (models.Identity, models.Verdict, error) {
	ctx, span := s.tracer.Start(ctx, "admission.Evaluate",
		trace.WithAttributes(
			attribute.String("admission.role", string(req.Role)),
			attribute.String("admission.path", req.Path),
		),
	)
	defer span.End()
	start := time.Now()

	identity := req.Identity()

	pol, ok := s.policies.Lookup(req.Role)
	if !ok {
		// Validate guarantees coverage; reaching this is a wiring bug.
		err := dErrors.New(dErrors.CodeInternal,
			fmt.Sprintf("no policy for role %q despite validated table", req.Role))
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "admission evaluation failed", "role", string(req.Role), "error", err)
		}
		return identity, models.Verdict{}, err
	}

	signals, err := s.evaluator.Gather(ctx, identity, pol, req)
	if err != nil {
		wrapped := dErrors.Wrap(err, dErrors.CodeInternal, "signal gathering failed")
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "admission evaluation failed",
				"identity", identity.String(),
				"role", string(req.Role),
				"error", wrapped,
			)
		}
		return identity, models.Verdict{}, wrapped
	}

	verdict := engine.Decide(signals, pol)

	s.metrics.IncrementVerdict(string(verdict.Outcome), string(verdict.Reason))
	s.metrics.ObserveEvaluateLatency(time.Since(start))
	span.SetAttributes(
		attribute.String("admission.outcome", string(verdict.Outcome)),
		attribute.String("admission.reason", string(verdict.Reason)),
	)

	return identity, verdict, nil
}
