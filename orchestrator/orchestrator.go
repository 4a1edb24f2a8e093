// Package orchestrator implements the agent orchestrator: the provider-
// agnostic layer that validates an inbound job, dispatches it to a
// provider.Provider, and maps the outcome to a job.Result. Dispatch is
// singleflight-guarded on job id and the provider is brought up lazily on
// first use.
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gatekeeper-project/gatekeeper/audit"
	"github.com/gatekeeper-project/gatekeeper/job"
	"github.com/gatekeeper-project/gatekeeper/logger"
	"github.com/gatekeeper-project/gatekeeper/provider"
)

// Orchestrator accepts opaque job payloads, validates them, and dispatches
// to a single configured provider. It holds no state beyond the provider
// handle and its own initialized flag.
type Orchestrator struct {
	provider provider.Provider
	cfg      Config
	group    singleflight.Group
	log      logger.Logger

	initialized atomic.Bool
	initMu      sync.Mutex
	closeOnce   sync.Once
}

// New constructs an Orchestrator around an already-created provider
// instance (typically from a provider.Registry.Create call) and cfg.
// Initialize is deferred to the first Dispatch or Health call.
func New(p provider.Provider, cfg Config, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewZerologLogger(logger.DefaultConfig())
	}
	return &Orchestrator{
		provider: p,
		cfg:      cfg,
		log:      log.WithSubsystem("orchestrator"),
	}
}

// ensureInitialized lazily brings the provider up on first use: a
// check-then-initialize, idempotent across concurrent callers since
// Provider.Initialize itself must tolerate being called more than once.
func (o *Orchestrator) ensureInitialized(ctx context.Context) error {
	if o.initialized.Load() {
		return nil
	}
	o.initMu.Lock()
	defer o.initMu.Unlock()
	if o.initialized.Load() {
		return nil
	}
	if err := o.provider.Initialize(ctx, o.cfg.Connection, o.cfg.Credentials); err != nil {
		return err
	}
	o.initialized.Store(true)
	return nil
}

// Dispatch validates j, ensures the provider is initialized, and routes to
// the matching dispatch{Create,Revoke,Cleanup} handler under a singleflight
// keyed on the job id so a duplicate submission collapses into one
// in-flight call.
func (o *Orchestrator) Dispatch(ctx context.Context, j job.Job) (job.Result, error) {
	if err := job.Validate(j, o.cfg.MaxSessionTTL); err != nil {
		verr, ok := err.(*job.ValidationError)
		if !ok {
			return failedResult(j, "VALIDATION_ERROR", err.Error(), false), nil
		}
		return failedResult(j, "VALIDATION_ERROR", verr.Error(), false), nil
	}

	if err := o.ensureInitialized(ctx); err != nil {
		o.log.Warn("on-demand initialize failed", logger.Err(err))
		return failedResult(j, "NOT_INITIALIZED", err.Error(), false), nil
	}

	v, err, _ := o.group.Do(j.JobID(), func() (interface{}, error) {
		switch typed := j.(type) {
		case *job.CreateSessionJob:
			return o.dispatchCreate(ctx, typed)
		case *job.RevokeSessionJob:
			return o.dispatchRevoke(ctx, typed)
		case *job.CleanupJob:
			return o.dispatchCleanup(ctx, typed)
		default:
			return failedResult(j, "INTERNAL_ERROR", "unrecognized job type", true), nil
		}
	})
	if err != nil {
		o.group.Forget(j.JobID())
		return nil, err
	}
	return v.(job.Result), nil
}

func (o *Orchestrator) dispatchCreate(ctx context.Context, j *job.CreateSessionJob) (job.Result, error) {
	sessionID, err := NewSessionID()
	if err != nil {
		return &job.CreateSessionResult{Status: job.StatusFailed, Error: internalErr(err)}, nil
	}
	username, err := NewUsername()
	if err != nil {
		return &job.CreateSessionResult{Status: job.StatusFailed, Error: internalErr(err)}, nil
	}
	password, err := NewPassword()
	if err != nil {
		return &job.CreateSessionResult{Status: job.StatusFailed, Error: internalErr(err)}, nil
	}

	result, err := o.provider.CreateEphemeralUser(ctx, provider.CreateUserRequest{
		Name:            username,
		Password:        password,
		RolePack:        string(j.Role),
		TTLMinutes:      j.TTLMinutes,
		ConnectionLimit: ephemeralConnectionLimit,
	})
	if err != nil {
		pErr, _ := provider.AsError(err)
		return &job.CreateSessionResult{Status: job.StatusFailed, Error: providerErr(pErr, err)}, nil
	}

	o.recordEvent(ctx, audit.Event{
		EventType:     audit.EventSessionCreated,
		SessionID:     sessionID,
		Username:      username,
		CorrelationID: j.CorrelationID,
		EventData: map[string]any{
			"job_id":          j.ID,
			"role":            string(j.Role),
			"ttl_minutes":     j.TTLMinutes,
			"requester_id":    j.Requester.UserID,
			"reason":          j.Reason,
			"target_host":     j.Target.Host,
			"target_port":     j.Target.Port,
			"target_database": j.Target.Database,
			"engine":          o.provider.Engine(),
			"engine_version":  o.provider.Version(),
		},
	})

	o.log.Info("session created",
		logger.String("session_id", sessionID),
		logger.String("role", string(j.Role)),
		logger.Int("ttl_minutes", j.TTLMinutes))

	return &job.CreateSessionResult{
		SessionID: sessionID,
		Status:    job.StatusReady,
		DSN:       result.DSN,
		ExpiresAt: result.ExpiresAt,
		Username:  username,
	}, nil
}

func (o *Orchestrator) dispatchRevoke(ctx context.Context, j *job.RevokeSessionJob) (job.Result, error) {
	reader, ok := o.provider.(provider.AuditTrailReader)
	if !ok {
		return &job.RevokeSessionResult{Status: job.StatusNotFound}, nil
	}

	username, found, err := reader.FindUsernameForSession(ctx, j.SessionID)
	if err != nil {
		return &job.RevokeSessionResult{Status: job.StatusFailed, Error: &job.ResultError{
			Code: "REVOCATION_ERROR", Message: err.Error(), Retryable: true,
		}}, nil
	}
	if !found {
		return &job.RevokeSessionResult{Status: job.StatusNotFound}, nil
	}

	dropped, err := o.provider.DropUser(ctx, username)
	if err != nil {
		return &job.RevokeSessionResult{Status: job.StatusFailed, Error: &job.ResultError{
			Code: "REVOCATION_ERROR", Message: err.Error(), Retryable: true,
		}}, nil
	}
	if !dropped {
		return &job.RevokeSessionResult{Status: job.StatusNotFound}, nil
	}

	o.recordEvent(ctx, audit.Event{
		EventType:     audit.EventSessionRevoked,
		SessionID:     j.SessionID,
		Username:      username,
		CorrelationID: j.CorrelationID,
		EventData:     map[string]any{"job_id": j.ID},
	})

	o.log.Info("session revoked", logger.String("session_id", j.SessionID))
	return &job.RevokeSessionResult{Status: job.StatusRevoked}, nil
}

func (o *Orchestrator) dispatchCleanup(ctx context.Context, j *job.CleanupJob) (job.Result, error) {
	rows, err := o.provider.CleanupExpiredUsers(ctx, j.OlderThanMinutes)
	if err != nil {
		pErr, _ := provider.AsError(err)
		return &job.CleanupResult{Status: job.StatusFailed, CleanedCount: 0, Error: providerErr(pErr, err)}, nil
	}

	var cleaned []string
	for _, r := range rows {
		if r.Dropped {
			cleaned = append(cleaned, r.Name)
		}
	}

	o.recordEvent(ctx, audit.Event{
		EventType:     audit.EventSessionsCleaned,
		CorrelationID: j.CorrelationID,
		EventData: map[string]any{
			"job_id":        j.ID,
			"cleaned_count": len(cleaned),
			"cleaned_users": cleaned,
		},
	})

	o.log.Info("cleanup dispatched", logger.Int("cleaned_count", len(cleaned)))
	return &job.CleanupResult{Status: job.StatusCompleted, CleanedCount: len(cleaned)}, nil
}

// recordEvent is a best-effort audit write: a provider that doesn't
// implement AuditRecorder silently skips it, and a write failure is logged
// rather than propagated, since the underlying operation already succeeded.
func (o *Orchestrator) recordEvent(ctx context.Context, event audit.Event) {
	recorder, ok := o.provider.(provider.AuditRecorder)
	if !ok {
		return
	}
	event.EventID = audit.NewEventID()
	event.CreatedAt = timeNow()
	if err := recorder.RecordAudit(ctx, event); err != nil {
		o.log.Warn("audit write failed", logger.String("event_type", string(event.EventType)), logger.Err(err))
	}
}

// RecordSession is the hook a future durable session-to-username mapping
// would call on every successful create, so revoke dispatch can move off
// the audit-trail lookup without a provider contract change. It is a
// best-effort call into the provider's optional AuditRecorder today.
func (o *Orchestrator) RecordSession(ctx context.Context, sessionID, username string) error {
	recorder, ok := o.provider.(provider.AuditRecorder)
	if !ok {
		return nil
	}
	return recorder.RecordAudit(ctx, audit.Event{
		EventID:   audit.NewEventID(),
		EventType: audit.EventSessionCreated,
		SessionID: sessionID,
		Username:  username,
		CreatedAt: timeNow(),
		EventData: map[string]any{"recorded_via": "RecordSession"},
	})
}

// Health brings the provider up if no earlier call has, then proxies
// provider.HealthCheck and remaps its tri-state to the outward
// ok/degraded/down vocabulary, enriching it with the provider's own engine
// tag and version. A failed on-demand initialize is logged, and the
// provider's own health check then reports the uninitialized state.
func (o *Orchestrator) Health(ctx context.Context) (*HealthResult, error) {
	if err := o.ensureInitialized(ctx); err != nil {
		o.log.Warn("on-demand initialize failed", logger.Err(err))
	}
	status, err := o.provider.HealthCheck(ctx)
	if err != nil {
		return nil, err
	}
	return &HealthResult{
		Status:    mapHealthState(status.State),
		Message:   status.Message,
		Engine:    o.provider.Engine(),
		Version:   o.provider.Version(),
		CheckedAt: status.CheckedAt,
		Details:   status.Details,
	}, nil
}

// Shutdown calls provider.Close exactly once; subsequent calls are no-ops.
// The logger's own Close runs best-effort afterward so a file writer, if
// one is configured, is flushed before the process exits.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	var err error
	o.closeOnce.Do(func() {
		err = o.provider.Close(ctx)
		if cerr := o.log.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

func failedResult(j job.Job, code, message string, retryable bool) job.Result {
	resErr := &job.ResultError{Code: code, Message: message, Retryable: retryable}
	switch j.JobType() {
	case job.TypeCreateSession:
		return &job.CreateSessionResult{Status: job.StatusFailed, Error: resErr}
	case job.TypeRevokeSession:
		return &job.RevokeSessionResult{Status: job.StatusFailed, Error: resErr}
	case job.TypeCleanup:
		return &job.CleanupResult{Status: job.StatusFailed, CleanedCount: 0, Error: resErr}
	default:
		return &job.CreateSessionResult{Status: job.StatusFailed, Error: resErr}
	}
}

func internalErr(err error) *job.ResultError {
	return &job.ResultError{Code: "INTERNAL_ERROR", Message: err.Error(), Retryable: true}
}

func providerErr(pErr *provider.Error, fallback error) *job.ResultError {
	if pErr == nil {
		return &job.ResultError{Code: "INTERNAL_ERROR", Message: fallback.Error(), Retryable: true}
	}
	return &job.ResultError{Code: string(pErr.Code), Message: pErr.Message, Retryable: pErr.Retryable}
}

func timeNow() time.Time { return time.Now().UTC() }
