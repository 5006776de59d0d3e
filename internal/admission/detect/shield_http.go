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

// HTTPShieldDetector queries an external anomaly shielding service.
type HTTPShieldDetector struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPShieldDetector creates a shield client with a bounded call timeout.
func NewHTTPShieldDetector(endpoint, apiKey string, timeout time.Duration) *HTTPShieldDetector {
	return &HTTPShieldDetector{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type shieldResponse struct {
	Anomaly bool `json:"anomaly"`
}

// Inspect posts the descriptor and reports whether the shield flagged it.
func (d *HTTPShieldDetector) Inspect(ctx context.Context, req models.RequestDescriptor) (models.ShieldSignal, error) {
	body, err := json.Marshal(toPayload(req))
	if err != nil {
		return models.ShieldSignal{}, fmt.Errorf("marshal shield request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.ShieldSignal{}, fmt.Errorf("build shield request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return models.ShieldSignal{}, fmt.Errorf("call shield: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ShieldSignal{}, fmt.Errorf("shield returned status %d", resp.StatusCode)
	}

	var parsed shieldResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.ShieldSignal{}, fmt.Errorf("decode shield response: %w", err)
	}

	return models.ShieldSignal{Anomaly: parsed.Anomaly, Provider: "http"}, nil
}
