package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gatekeeper-project/gatekeeper/provider"
)

// PostgreSQL SQLSTATEs the bootstrap helper raises deliberately; see
// schema.sql's create_ephemeral for the ERRCODE values.
const (
	sqlStateInvalidName   = "22023"
	sqlStateUnknownRole   = "42704"
	sqlStateDuplicateRole = "42710"
)

// classifyCreateError maps a create_ephemeral failure to a provider.Error,
// preferring the driver's typed pgconn.PgError.Code and falling back to
// substring matching on the message when the error isn't a typed PgError
// (e.g. in sqlmock-driven tests, which return plain errors.New values).
func classifyCreateError(engine string, err error) *provider.Error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateDuplicateRole:
			return provider.NewUserExistsError(engine, "", err)
		case sqlStateUnknownRole:
			return provider.NewRoleNotFoundError(engine, "", err)
		case sqlStateInvalidName:
			return provider.NewUserCreationFailedError(engine, err)
		}
		return provider.NewUserCreationFailedError(engine, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already exists"):
		return provider.NewUserExistsError(engine, "", err)
	case strings.Contains(msg, "unknown role pack") || strings.Contains(msg, "role pack"):
		return provider.NewRoleNotFoundError(engine, "", err)
	default:
		return provider.NewUserCreationFailedError(engine, err)
	}
}
