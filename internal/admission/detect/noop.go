package detect

import (
	"context"

	"gatekeeper/internal/admission/models"
)

// NoopShieldDetector never flags. It stands in when no shield endpoint is
// configured, keeping the evaluator wiring uniform.
type NoopShieldDetector struct{}

// Inspect reports no anomaly.
func (NoopShieldDetector) Inspect(context.Context, models.RequestDescriptor) (models.ShieldSignal, error) {
	return models.ShieldSignal{Provider: "noop"}, nil
}
