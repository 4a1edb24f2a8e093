// Package job defines the inbound job contract the agent orchestrator
// consumes: the tagged-union job shapes, their matching results, the role
// and session-status enumerations, and the validation that stands between
// an opaque transport payload and a typed job the orchestrator can dispatch.
package job

// Type identifies which of the three job variants a payload carries.
type Type string

const (
	TypeCreateSession Type = "create_session"
	TypeRevokeSession Type = "revoke_session"
	TypeCleanup       Type = "cleanup"
)

// Common fields every job variant carries.
type Common struct {
	ID            string `mapstructure:"id" validate:"required,min=1,max=128"`
	CorrelationID string `mapstructure:"correlationId" validate:"required,uuid4"`
}

// Target identifies the database a create_session job provisions against.
type Target struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Database string `mapstructure:"database" validate:"required"`
	SSLMode  string `mapstructure:"sslMode" validate:"omitempty,oneof=prefer require disable"`
}

// Requester identifies who asked for a session.
type Requester struct {
	UserID string `mapstructure:"userId" validate:"required"`
	Email  string `mapstructure:"email" validate:"omitempty,email"`
}

// Job is implemented by every job variant. The Type method lets the
// orchestrator and the decoder dispatch without a second type switch.
type Job interface {
	JobType() Type
	JobID() string
	JobCorrelationID() string
}

// CreateSessionJob requests a fresh ephemeral principal on Target.
type CreateSessionJob struct {
	Common
	Target     Target    `mapstructure:"target" validate:"required"`
	Role       Role      `mapstructure:"role" validate:"required,oneof=read write admin"`
	TTLMinutes int       `mapstructure:"ttlMinutes" validate:"required,min=1,max=1440"`
	Requester  Requester `mapstructure:"requester" validate:"required"`
	Reason     string    `mapstructure:"reason" validate:"omitempty,max=256"`
}

func (j *CreateSessionJob) JobType() Type { return TypeCreateSession }
func (j *CreateSessionJob) JobID() string { return j.ID }
func (j *CreateSessionJob) JobCorrelationID() string { return j.CorrelationID }

// RevokeSessionJob requests early reclamation of a previously issued session.
type RevokeSessionJob struct {
	Common
	SessionID string `mapstructure:"sessionId" validate:"required,gk_sessionid"`
}

func (j *RevokeSessionJob) JobType() Type { return TypeRevokeSession }
func (j *RevokeSessionJob) JobID() string { return j.ID }
func (j *RevokeSessionJob) JobCorrelationID() string { return j.CorrelationID }

// CleanupJob requests a batch sweep of expired principals.
type CleanupJob struct {
	Common
	OlderThanMinutes int `mapstructure:"olderThanMinutes" validate:"min=0"`
}

func (j *CleanupJob) JobType() Type { return TypeCleanup }
func (j *CleanupJob) JobID() string { return j.ID }
func (j *CleanupJob) JobCorrelationID() string { return j.CorrelationID }
