// Package bootstrap installs the Gatekeeper privileged schema — roles,
// helper routines, and audit table — into a target PostgreSQL database, as
// one large embedded DDL script run once at install time.
package bootstrap

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/gatekeeper-project/gatekeeper/audit"
	"github.com/gatekeeper-project/gatekeeper/logger"
	"github.com/gatekeeper-project/gatekeeper/provider"
)

//go:embed schema.sql
var schemaSQL string

// Schema exposes the embedded DDL for callers that want to inspect or run
// it through tooling other than Install (e.g. migration runners).
var Schema = schemaSQL

// Install runs the embedded DDL against db inside a transaction and appends
// the installer's own setup.completed audit row. Every statement in
// schema.sql is idempotent, so Install is safe to re-run.
func Install(ctx context.Context, db *sql.DB, log logger.Logger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning bootstrap transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("installing bootstrap schema: %w", err)
	}

	eventData := map[string]any{"schema": "gatekeeper-postgres"}
	hash, err := audit.ComputeEventHash(audit.EventSetupCompleted, eventData, "")
	if err != nil {
		return fmt.Errorf("computing setup.completed audit hash: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO gatekeeper_audit_log (event_id, event_type, correlation_id, event_data, event_hash) VALUES ($1, $2, $3, $4, $5)`,
		audit.NewEventID(), string(audit.EventSetupCompleted), "bootstrap-install", `{"schema":"gatekeeper-postgres"}`, hash,
	)
	if err != nil {
		return fmt.Errorf("writing setup.completed audit row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing bootstrap transaction: %w", err)
	}

	if log != nil {
		log.Info("bootstrap schema installed")
	}
	return nil
}

// ValidateSetup calls the bootstrap's validate_setup() SQL function and
// decodes its rows. This is what PostgresProvider.HealthCheck calls.
func ValidateSetup(ctx context.Context, db *sql.DB) ([]provider.CheckResult, error) {
	rows, err := db.QueryContext(ctx, `SELECT check_name, status, details FROM validate_setup()`)
	if err != nil {
		return nil, fmt.Errorf("calling validate_setup: %w", err)
	}
	defer rows.Close()

	var results []provider.CheckResult
	for rows.Next() {
		var r provider.CheckResult
		if err := rows.Scan(&r.Name, &r.Status, &r.Details); err != nil {
			return nil, fmt.Errorf("scanning validate_setup row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
