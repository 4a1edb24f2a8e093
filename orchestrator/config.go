package orchestrator

import (
	"time"

	"github.com/gatekeeper-project/gatekeeper/provider"
)

// ephemeralConnectionLimit is the hard-coded per-session connection cap the
// orchestrator asks the provider to enforce on every ephemeral principal.
const ephemeralConnectionLimit = 2

// Config bounds and parameterizes a single Orchestrator instance. Connection
// and Credentials are what Dispatch uses for its on-demand Initialize.
type Config struct {
	Connection      provider.Connection
	Credentials     provider.AdminCredentials
	MaxSessionTTL   time.Duration
	RolePackVersion string
}

// DefaultConfig returns the session maximum TTL the job contract's own
// struct tag enforces as an upper bound (1440 minutes).
func DefaultConfig() Config {
	return Config{MaxSessionTTL: 24 * time.Hour}
}
