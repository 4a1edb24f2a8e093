package provider

import (
	"context"

	"github.com/gatekeeper-project/gatekeeper/audit"
)

// Provider is the capability surface for one database engine: mint and
// reclaim ephemeral principals, report health, and expose the role packs
// it supports.
type Provider interface {
	// Initialize opens an admin connection pool and verifies the bootstrap
	// schema is present. It must fail fast on a privilege mismatch.
	Initialize(ctx context.Context, conn Connection, creds AdminCredentials) error

	// HealthCheck reports the provider's current health.
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// CreateEphemeralUser provisions one principal and returns its DSN.
	CreateEphemeralUser(ctx context.Context, req CreateUserRequest) (*CreateUserResult, error)

	// DropUser removes a principal. Absence is not an error; the bool
	// reports whether a principal was actually removed.
	DropUser(ctx context.Context, name string) (bool, error)

	// ListEphemeralUsers enumerates currently provisioned principals.
	ListEphemeralUsers(ctx context.Context) ([]EphemeralUser, error)

	// CleanupExpiredUsers drops every principal whose expiry is older than
	// olderThanMinutes and reports one row per candidate.
	CleanupExpiredUsers(ctx context.Context, olderThanMinutes int) ([]CleanupRow, error)

	// GetAvailableRolePacks returns this engine's role-pack catalog.
	GetAvailableRolePacks(ctx context.Context) ([]RolePack, error)

	// InstallRolePack installs a role pack idempotently at a fixed version.
	InstallRolePack(ctx context.Context, pack RolePack) error

	// GenerateDSN builds the engine-specific connection string for a
	// principal. It never logs the result.
	GenerateDSN(conn Connection, name, password string) string

	// TestConnection performs a best-effort reachability check of a DSN.
	TestConnection(ctx context.Context, dsn string) error

	// Close releases the pool and any background work. Safe to call once.
	Close(ctx context.Context) error

	// Engine reports this provider's engine tag, e.g. "postgresql".
	Engine() string

	// Version reports this provider implementation's version.
	Version() string
}

// AuditRecorder is an optional capability: providers that can append to the
// target database's own audit log implement this so the orchestrator's
// audit events land beside the bootstrap's setup.completed row, instead of
// only existing in whatever log sink the orchestrator's process writes to.
type AuditRecorder interface {
	RecordAudit(ctx context.Context, event audit.Event) error
}

// AuditTrailReader is an optional capability used by revoke-session dispatch
// to resolve a session id to a username when no durable local mapping
// exists for it.
type AuditTrailReader interface {
	FindUsernameForSession(ctx context.Context, sessionID string) (string, bool, error)
}
