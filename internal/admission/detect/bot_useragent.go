package detect

import (
	"context"
	"strings"

	"github.com/mssola/useragent"

	"gatekeeper/internal/admission/models"
)

// UserAgentBotDetector classifies automated traffic from the User-Agent
// string alone. It backs deployments without an external classifier and
// doubles as the local fallback. Being purely local it cannot time out.
type UserAgentBotDetector struct {
	threshold float64
}

// NewUserAgentBotDetector creates the heuristic detector. Requests score
// at or above threshold are flagged.
func NewUserAgentBotDetector(threshold float64) *UserAgentBotDetector {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.8
	}
	return &UserAgentBotDetector{threshold: threshold}
}

// scripted client substrings that the useragent library does not classify
// as bots on its own.
var scriptedClients = []string{"curl/", "wget/", "python-requests", "go-http-client", "scrapy"}

// Classify scores the request's User-Agent.
func (d *UserAgentBotDetector) Classify(_ context.Context, req models.RequestDescriptor) (models.BotSignal, error) {
	confidence := scoreUserAgent(req.UserAgent)
	return models.BotSignal{
		Flagged:    confidence >= d.threshold,
		Confidence: confidence,
		Provider:   "useragent",
	}, nil
}

func scoreUserAgent(raw string) float64 {
	if raw == "" {
		// Browsers always send one; its absence is a strong scripted-traffic hint.
		return 0.9
	}

	ua := useragent.New(raw)
	if ua.Bot() {
		return 1.0
	}

	lowered := strings.ToLower(raw)
	for _, marker := range scriptedClients {
		if strings.Contains(lowered, marker) {
			return 0.85
		}
	}

	// A parseable browser engine lowers suspicion; an unknown engine keeps
	// a residual score.
	if engine, _ := ua.Engine(); engine != "" {
		return 0.05
	}
	return 0.4
}
