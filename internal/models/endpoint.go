package models

import (
	"strings"
	"time"
)

// UnavailableModelName is reported when no endpoint is active.
const UnavailableModelName = "Unavailable"

// ProbeResult records the outcome of one availability probe.
type ProbeResult struct {
	ID         int64     `json:"id,omitempty"`
	Endpoint   string    `json:"endpoint"`
	Model      string    `json:"model"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	LatencyMs  int64     `json:"latency_ms"`
	ProbedAt   time.Time `json:"probed_at"`
}

// Endpoint event types.
const (
	EventEndpointSelected    = "endpoint_selected"
	EventEndpointInvalidated = "endpoint_invalidated"
	EventEndpointUnavailable = "endpoint_unavailable"
)

// EndpointEvent is published whenever the active endpoint changes.
type EndpointEvent struct {
	Type     string    `json:"type"`
	Endpoint string    `json:"endpoint,omitempty"`
	Model    string    `json:"model"`
	At       time.Time `json:"at"`
}

// StatusResponse describes the selector state.
type StatusResponse struct {
	Mode    string `json:"mode"`
	Backend string `json:"backend"`
	Active  string `json:"active,omitempty"`
	Model   string `json:"model"`
}

// WSMessage is the envelope for every WebSocket frame sent to clients.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ModelName extracts a display name from an endpoint: the last path
// segment of a URL, or the endpoint itself for bare model ids.
func ModelName(endpoint string) string {
	if endpoint == "" {
		return UnavailableModelName
	}
	trimmed := strings.TrimRight(endpoint, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
