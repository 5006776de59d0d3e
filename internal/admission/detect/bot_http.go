package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gatekeeper/internal/admission/models"
)

// HTTPBotDetector queries an external bot classification service.
// The service receives the request descriptor and answers with a
// confidence score in [0,1].
type HTTPBotDetector struct {
	endpoint   string
	apiKey     string
	threshold  float64
	httpClient *http.Client
}

// BotOption configures an HTTPBotDetector.
type BotOption func(*HTTPBotDetector)

// WithBotAPIKey sets the Authorization bearer credential.
func WithBotAPIKey(key string) BotOption {
	return func(d *HTTPBotDetector) {
		d.apiKey = key
	}
}

// WithBotThreshold overrides the confidence level at which a request is
// flagged as automated traffic.
func WithBotThreshold(threshold float64) BotOption {
	return func(d *HTTPBotDetector) {
		if threshold > 0 && threshold <= 1 {
			d.threshold = threshold
		}
	}
}

// NewHTTPBotDetector creates a detector client. The timeout bounds the
// whole call; the evaluator additionally enforces its own signal deadline.
func NewHTTPBotDetector(endpoint string, timeout time.Duration, opts ...BotOption) *HTTPBotDetector {
	d := &HTTPBotDetector{
		endpoint:   endpoint,
		threshold:  0.8,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type botResponse struct {
	Confidence float64 `json:"confidence"`
}

// Classify posts the descriptor and maps the confidence to a signal.
func (d *HTTPBotDetector) Classify(ctx context.Context, req models.RequestDescriptor) (models.BotSignal, error) {
	body, err := json.Marshal(toPayload(req))
	if err != nil {
		return models.BotSignal{}, fmt.Errorf("marshal bot request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.BotSignal{}, fmt.Errorf("build bot request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return models.BotSignal{}, fmt.Errorf("call bot classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.BotSignal{}, fmt.Errorf("bot classifier returned status %d", resp.StatusCode)
	}

	var parsed botResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.BotSignal{}, fmt.Errorf("decode bot response: %w", err)
	}

	return models.BotSignal{
		Flagged:    parsed.Confidence >= d.threshold,
		Confidence: parsed.Confidence,
		Provider:   "http",
	}, nil
}
