package job

import "time"

// ResultError is the {code, message, retryable} error shape every failed
// result carries.
type ResultError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Result is implemented by every result variant, mirroring Job.
type Result interface {
	ResultStatus() Status
}

// CreateSessionResult mirrors the create outbound shape.
type CreateSessionResult struct {
	SessionID string       `json:"sessionId"`
	Status    Status       `json:"status"`
	DSN       string       `json:"dsn,omitempty"`
	ExpiresAt time.Time    `json:"expiresAt,omitempty"`
	Username  string       `json:"username,omitempty"`
	Error     *ResultError `json:"error,omitempty"`
}

func (r *CreateSessionResult) ResultStatus() Status { return r.Status }

// RevokeSessionResult mirrors the revoke outbound shape.
type RevokeSessionResult struct {
	Status Status       `json:"status"`
	Error  *ResultError `json:"error,omitempty"`
}

func (r *RevokeSessionResult) ResultStatus() Status { return r.Status }

// CleanupResult mirrors the cleanup outbound shape.
type CleanupResult struct {
	Status       Status       `json:"status"`
	CleanedCount int          `json:"cleanedCount"`
	Error        *ResultError `json:"error,omitempty"`
}

func (r *CleanupResult) ResultStatus() Status { return r.Status }
