// Package engine combines independent admission signals into one verdict.
//
// This is pure domain logic: no I/O, no side effects. Priority is fixed —
// bot detection outranks anomaly shielding, which outranks quota
// exhaustion — and only the highest-priority triggered reason is reported
// even when several signals would deny the request.
package engine

import (
	"gatekeeper/internal/admission/models"
)

// Denial messages for the detector-driven reasons. Quota denials carry the
// role policy's message instead.
const (
	botMessage    = "Automated traffic detected. This request has been blocked."
	shieldMessage = "Request blocked by anomaly protection."
)

// Decide produces the single verdict for one request. The quota result is
// attached to allow verdicts too, so the boundary can emit rate limit
// headers on every response.
func Decide(signals models.Signals, policy models.Policy) models.Verdict {
	if signals.Bot.Flagged {
		return models.Verdict{
			Outcome: models.OutcomeDeny,
			Reason:  models.ReasonBot,
			Message: botMessage,
			Quota:   signals.Quota,
		}
	}

	if signals.Shield.Anomaly {
		return models.Verdict{
			Outcome: models.OutcomeDeny,
			Reason:  models.ReasonShield,
			Message: shieldMessage,
			Quota:   signals.Quota,
		}
	}

	if !signals.Quota.Allowed {
		return models.Verdict{
			Outcome: models.OutcomeDeny,
			Reason:  models.ReasonRateLimit,
			Message: policy.Message,
			Quota:   signals.Quota,
		}
	}

	return models.Verdict{
		Outcome: models.OutcomeAllow,
		Reason:  models.ReasonNone,
		Quota:   signals.Quota,
	}
}
