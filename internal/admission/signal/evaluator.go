// Package signal gathers the three admission signals for one request.
//
// The bot and shield detectors are remote collaborators: each call carries
// a bounded timeout and sits behind a circuit breaker, and any failure
// degrades that one signal to "not flagged" (fail-open). The quota signal
// is computed locally against the window store and is fail-closed — if the
// store errors, the whole evaluation errors and the boundary maps it to an
// internal fault.
package signal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"gatekeeper/internal/admission/metrics"
	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/ports"
	"gatekeeper/pkg/platform/circuit"
)

// Evaluator produces the full signal set consumed by the decision engine.
type Evaluator struct {
	store         ports.WindowStore
	bot           ports.BotDetector
	shield        ports.ShieldDetector
	timeout       time.Duration
	botBreaker    *circuit.Breaker
	shieldBreaker *circuit.Breaker
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithMetrics attaches admission metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

// WithTimeout bounds each detector call. Defaults to 300ms.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Evaluator) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// New constructs an Evaluator.
func New(store ports.WindowStore, bot ports.BotDetector, shield ports.ShieldDetector, opts ...Option) (*Evaluator, error) {
	if store == nil {
		return nil, errors.New("window store is required")
	}
	if bot == nil {
		return nil, errors.New("bot detector is required")
	}
	if shield == nil {
		return nil, errors.New("shield detector is required")
	}

	e := &Evaluator{
		store:         store,
		bot:           bot,
		shield:        shield,
		timeout:       300 * time.Millisecond,
		botBreaker:    circuit.New("bot", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		shieldBreaker: circuit.New("shield", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Gather evaluates all three signals concurrently and returns once every
// signal is available. Only a window store failure produces an error.
func (e *Evaluator) Gather(
	ctx context.Context,
	identity models.Identity,
	policy models.Policy,
	req models.RequestDescriptor,
) (models.Signals, error) {
	g, gctx := errgroup.WithContext(ctx)
	signals := models.Signals{}

	g.Go(func() error {
		result, err := e.store.Allow(gctx, identity.String(), policy.MaxRequests, policy.Window)
		if err != nil {
			return err
		}
		signals.Quota = *result
		return nil
	})

	g.Go(func() error {
		signals.Bot = e.gatherBot(gctx, req)
		return nil
	})

	g.Go(func() error {
		signals.Shield = e.gatherShield(gctx, req)
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.Signals{}, err
	}
	return signals, nil
}

func (e *Evaluator) gatherBot(ctx context.Context, req models.RequestDescriptor) models.BotSignal {
	if e.botBreaker.IsOpen() {
		e.metrics.IncrementDetectorFailure("bot", "circuit_open")
		return models.BotSignal{}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	sig, err := e.bot.Classify(callCtx, req)
	e.metrics.ObserveDetectorLatency("bot", time.Since(start))

	if err != nil {
		e.recordDetectorFailure(ctx, e.botBreaker, "bot", err)
		return models.BotSignal{}
	}
	e.botBreaker.RecordSuccess()
	return sig
}

func (e *Evaluator) gatherShield(ctx context.Context, req models.RequestDescriptor) models.ShieldSignal {
	if e.shieldBreaker.IsOpen() {
		e.metrics.IncrementDetectorFailure("shield", "circuit_open")
		return models.ShieldSignal{}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	sig, err := e.shield.Inspect(callCtx, req)
	e.metrics.ObserveDetectorLatency("shield", time.Since(start))

	if err != nil {
		e.recordDetectorFailure(ctx, e.shieldBreaker, "shield", err)
		return models.ShieldSignal{}
	}
	e.shieldBreaker.RecordSuccess()
	return sig
}

// recordDetectorFailure degrades the signal, feeds the breaker, and logs
// at a low severity: detector trouble is operational noise, not a request
// error.
func (e *Evaluator) recordDetectorFailure(ctx context.Context, breaker *circuit.Breaker, source string, err error) {
	cause := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		cause = "timeout"
	}
	e.metrics.IncrementDetectorFailure(source, cause)

	_, change := breaker.RecordFailure()
	if e.logger != nil {
		e.logger.WarnContext(ctx, "detector signal degraded to unflagged",
			"source", source,
			"cause", cause,
			"error", err,
		)
		if change.Opened {
			e.logger.ErrorContext(ctx, "detector circuit opened", "source", source)
		}
	}
}
