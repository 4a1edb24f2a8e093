package orchestrator

import (
	"time"

	"github.com/gatekeeper-project/gatekeeper/provider"
)

// HealthResult is the orchestrator-level view of provider health: the
// provider's tri-state remapped to the outward ok/degraded/down vocabulary,
// enriched with the provider's own tag and version.
type HealthResult struct {
	Status    string
	Message   string
	Engine    string
	Version   string
	CheckedAt time.Time
	Details   map[string]any
}

func mapHealthState(s provider.HealthState) string {
	switch s {
	case provider.HealthHealthy:
		return "ok"
	case provider.HealthDegraded:
		return "degraded"
	default:
		return "down"
	}
}
