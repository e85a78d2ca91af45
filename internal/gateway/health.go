package gateway

import (
	"time"

	"github.com/proxypal/proxypal/internal/authfiles"
)

// Provider health states.
const (
	StatusHealthy      = "healthy"
	StatusDegraded     = "degraded"
	StatusOffline      = "offline"
	StatusUnconfigured = "unconfigured"
)

// HealthStatus is one provider's health snapshot.
type HealthStatus struct {
	Status      string `json:"status"`
	LatencyMS   *int64 `json:"latency_ms"`
	LastChecked int64  `json:"last_checked"`
}

// ProviderHealth is the per-provider health report.
type ProviderHealth struct {
	Claude      HealthStatus `json:"claude"`
	OpenAI      HealthStatus `json:"openai"`
	Gemini      HealthStatus `json:"gemini"`
	Qwen        HealthStatus `json:"qwen"`
	IFlow       HealthStatus `json:"iflow"`
	Vertex      HealthStatus `json:"vertex"`
	Antigravity HealthStatus `json:"antigravity"`
}

// ComputeHealth derives provider health from one proxy probe: a provider is
// healthy when it has credentials and the proxy answers, degraded when it
// has credentials but the proxy doesn't, unconfigured without credentials,
// and offline across the board when the proxy isn't running at all.
func ComputeHealth(auth authfiles.Status, running, healthy bool, latency time.Duration, now time.Time) ProviderHealth {
	ts := now.Unix()
	if !running {
		off := HealthStatus{Status: StatusOffline, LastChecked: ts}
		return ProviderHealth{
			Claude: off, OpenAI: off, Gemini: off, Qwen: off,
			IFlow: off, Vertex: off, Antigravity: off,
		}
	}
	one := func(accounts int) HealthStatus {
		switch {
		case accounts > 0 && healthy:
			ms := latency.Milliseconds()
			return HealthStatus{Status: StatusHealthy, LatencyMS: &ms, LastChecked: ts}
		case accounts > 0:
			return HealthStatus{Status: StatusDegraded, LastChecked: ts}
		default:
			return HealthStatus{Status: StatusUnconfigured, LastChecked: ts}
		}
	}
	return ProviderHealth{
		Claude:      one(auth.Claude),
		OpenAI:      one(auth.OpenAI),
		Gemini:      one(auth.Gemini),
		Qwen:        one(auth.Qwen),
		IFlow:       one(auth.IFlow),
		Vertex:      one(auth.Vertex),
		Antigravity: one(auth.Antigravity),
	}
}
