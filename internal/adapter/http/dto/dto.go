package dto

// DependencyStatus is the health of one backing service.
type DependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status       string                      `json:"status"` // healthy or degraded
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

// WebhookOutcome is logged per delivery; the gateway itself only sees
// {"received": true}.
type WebhookOutcome struct {
	EventID  string `json:"event_id,omitempty"`
	Outcome  string `json:"outcome"`
	EscrowID string `json:"escrow_id,omitempty"`
}
