// Package detect provides bot-likelihood and anomaly-shield classifiers.
//
// Two flavors exist for each concern: an HTTP client for an external
// detection service, and a built-in heuristic used when no endpoint is
// configured. Callers treat every classifier as advisory — errors degrade
// to an unflagged signal upstream, never to a denial.
package detect

import "gatekeeper/internal/admission/models"

// descriptorPayload is the JSON body sent to external classifiers.
type descriptorPayload struct {
	Origin    string `json:"origin"`
	Subject   string `json:"subject,omitempty"`
	Role      string `json:"role"`
	Path      string `json:"path"`
	Method    string `json:"method"`
	UserAgent string `json:"user_agent,omitempty"`
}

func toPayload(req models.RequestDescriptor) descriptorPayload {
	return descriptorPayload{
		Origin:    req.Origin,
		Subject:   req.Subject,
		Role:      string(req.Role),
		Path:      req.Path,
		Method:    req.Method,
		UserAgent: req.UserAgent,
	}
}
