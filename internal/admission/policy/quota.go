package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gatekeeper/internal/admission/models"
	dErrors "gatekeeper/pkg/domain-errors"
)

// Override replaces one role's quota from a "count/window" spec such as
// "5/1m" or "100/30s". The denial message is regenerated to match.
// Intended for startup-time config application only.
func (t *Table) Override(role models.Role, spec string) error {
	maxRequests, window, err := parseQuotaSpec(spec)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeConfiguration,
			fmt.Sprintf("invalid quota override for role %q", role))
	}

	t.Set(role, models.Policy{
		Window:      window,
		MaxRequests: maxRequests,
		Message:     denialMessage(role, maxRequests, window),
	})
	return nil
}

func parseQuotaSpec(spec string) (int, time.Duration, error) {
	count, windowText, ok := strings.Cut(spec, "/")
	if !ok {
		return 0, 0, fmt.Errorf("expected count/window, got %q", spec)
	}

	maxRequests, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || maxRequests <= 0 {
		return 0, 0, fmt.Errorf("invalid request count in %q", spec)
	}

	window, err := time.ParseDuration(strings.TrimSpace(windowText))
	if err != nil || window <= 0 {
		return 0, 0, fmt.Errorf("invalid window in %q", spec)
	}

	return maxRequests, window, nil
}

func denialMessage(role models.Role, maxRequests int, window time.Duration) string {
	title := strings.ToUpper(string(role)[:1]) + string(role)[1:]
	return fmt.Sprintf("%s request limit reached: %d per %s.", title, maxRequests, windowText(window))
}

func windowText(window time.Duration) string {
	switch window {
	case time.Minute:
		return "minute"
	case time.Hour:
		return "hour"
	case time.Second:
		return "second"
	default:
		return window.String()
	}
}
