package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/gatekeeper-project/gatekeeper/audit"
)

// RecordAudit appends event to gatekeeper_audit_log, chaining it onto the
// current tail hash. Satisfies provider.AuditRecorder.
func (p *PostgresProvider) RecordAudit(ctx context.Context, event audit.Event) error {
	if err := p.requireInitialized(); err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, p.pool.OperationTimeout())
	defer cancel()

	tx, err := p.db.BeginTx(opCtx, nil)
	if err != nil {
		return fmt.Errorf("beginning audit transaction: %w", err)
	}
	defer tx.Rollback()

	var prevHash sql.NullString
	err = tx.QueryRowContext(opCtx,
		`SELECT event_hash FROM gatekeeper_audit_log ORDER BY id DESC LIMIT 1`).Scan(&prevHash)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("reading audit chain tail: %w", err)
	}
	event.PrevHash = prevHash.String

	hash, err := audit.ComputeEventHash(event.EventType, event.EventData, event.PrevHash)
	if err != nil {
		return fmt.Errorf("computing event hash: %w", err)
	}
	event.EventHash = hash

	eventData, err := json.Marshal(event.EventData)
	if err != nil {
		return fmt.Errorf("marshaling event data: %w", err)
	}

	if event.EventID == "" {
		event.EventID = audit.NewEventID()
	}

	_, err = tx.ExecContext(opCtx,
		`INSERT INTO gatekeeper_audit_log
			(event_id, event_type, session_id, username, correlation_id, event_data, prev_hash, event_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.EventID, string(event.EventType), event.SessionID, event.Username, event.CorrelationID,
		eventData, event.PrevHash, event.EventHash,
	)
	if err != nil {
		return fmt.Errorf("inserting audit row: %w", err)
	}

	return tx.Commit()
}

// FindUsernameForSession looks up the username recorded against a
// session.created event for sessionID. Satisfies provider.AuditTrailReader.
func (p *PostgresProvider) FindUsernameForSession(ctx context.Context, sessionID string) (string, bool, error) {
	if err := p.requireInitialized(); err != nil {
		return "", false, err
	}

	opCtx, cancel := context.WithTimeout(ctx, p.pool.OperationTimeout())
	defer cancel()

	var username string
	err := p.db.QueryRowContext(opCtx,
		`SELECT username FROM gatekeeper_audit_log
			WHERE session_id = $1 AND event_type = $2
			ORDER BY id DESC LIMIT 1`,
		sessionID, string(audit.EventSessionCreated),
	).Scan(&username)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up session %q: %w", sessionID, err)
	}
	return username, true, nil
}
