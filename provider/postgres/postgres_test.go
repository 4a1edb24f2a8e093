package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekeeper-project/gatekeeper/logger"
	"github.com/gatekeeper-project/gatekeeper/provider"
)

// newMockProvider wires an initialized PostgresProvider around a sqlmock
// database, bypassing Initialize's real sql.Open/PingContext dance.
func newMockProvider(t *testing.T) (*PostgresProvider, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp), sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	p := New(logger.NewZerologLogger(logger.DefaultConfig()))
	p.db = db
	p.conn = provider.Connection{Host: "db.internal", Port: 5432, Database: "app", SSLMode: "require"}
	p.initialized.Store(true)

	return p, mock, func() { db.Close() }
}

func TestPostgresProvider_EngineAndVersion(t *testing.T) {
	p := New(nil)
	assert.Equal(t, "postgresql", p.Engine())
	assert.Equal(t, ProviderVersion, p.Version())
}

func TestPostgresProvider_RequiresInitialization(t *testing.T) {
	p := New(nil)
	_, err := p.CreateEphemeralUser(context.Background(), provider.CreateUserRequest{Name: "gk_abc"})
	require.Error(t, err)
	pErr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, provider.CodeNotInitialized, pErr.Code)
}

func TestPostgresProvider_CreateEphemeralUser(t *testing.T) {
	p, mock, cleanup := newMockProvider(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT create_ephemeral($1, $2, $3, $4, $5)")).
		WithArgs("gk_abc123", "s3cr3t-s3cr3t", sqlmock.AnyArg(), "read", 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	result, err := p.CreateEphemeralUser(context.Background(), provider.CreateUserRequest{
		Name:            "gk_abc123",
		Password:        "s3cr3t-s3cr3t",
		RolePack:        "read",
		TTLMinutes:      15,
		ConnectionLimit: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "gk_abc123", result.Name)
	assert.Contains(t, result.DSN, "gk_abc123")
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), result.ExpiresAt, 2*time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProvider_CreateEphemeralUser_RejectsBadName(t *testing.T) {
	p, _, cleanup := newMockProvider(t)
	defer cleanup()

	_, err := p.CreateEphemeralUser(context.Background(), provider.CreateUserRequest{Name: "not-valid"})
	require.Error(t, err)
	pErr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, provider.CodeUserCreationFailed, pErr.Code)
}

func TestPostgresProvider_CreateEphemeralUser_DuplicateName(t *testing.T) {
	p, mock, cleanup := newMockProvider(t)
	defer cleanup()

	pgErr := &pgconn.PgError{Code: sqlStateDuplicateRole, Message: "role already exists"}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT create_ephemeral($1, $2, $3, $4, $5)")).
		WillReturnError(pgErr)
	mock.ExpectRollback()

	_, err := p.CreateEphemeralUser(context.Background(), provider.CreateUserRequest{
		Name: "gk_dup", Password: "s3cr3t-s3cr3t", RolePack: "read", TTLMinutes: 5,
	})
	require.Error(t, err)
	pErr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, provider.CodeUserExists, pErr.Code)
}

func TestPostgresProvider_DropUser(t *testing.T) {
	p, mock, cleanup := newMockProvider(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT drop($1)")).
		WithArgs("gk_abc123").
		WillReturnRows(sqlmock.NewRows([]string{"drop"}).AddRow(true))

	dropped, err := p.DropUser(context.Background(), "gk_abc123")
	require.NoError(t, err)
	assert.True(t, dropped)
}

func TestPostgresProvider_DropUser_Absent(t *testing.T) {
	p, mock, cleanup := newMockProvider(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT drop($1)")).
		WithArgs("gk_missing").
		WillReturnRows(sqlmock.NewRows([]string{"drop"}).AddRow(false))

	dropped, err := p.DropUser(context.Background(), "gk_missing")
	require.NoError(t, err)
	assert.False(t, dropped)
}

func TestPostgresProvider_ListEphemeralUsers(t *testing.T) {
	p, mock, cleanup := newMockProvider(t)
	defer cleanup()

	expiry := time.Now().UTC().Add(10 * time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, expiry, is_expired, connection_limit, active_connections FROM list_ephemeral()")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "expiry", "is_expired", "connection_limit", "active_connections"}).
			AddRow("gk_one", expiry, false, 5, int64(2)).
			AddRow("gk_two", expiry, true, 5, int64(0)))

	users, err := p.ListEphemeralUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "gk_one", users[0].Name)
	assert.Equal(t, 2, users[0].ActiveConnections)
	assert.True(t, users[1].IsExpired)
}

func TestPostgresProvider_CleanupExpiredUsers(t *testing.T) {
	p, mock, cleanup := newMockProvider(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, was_expired, dropped, error_message FROM cleanup_expired($1)")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"name", "was_expired", "dropped", "error_message"}).
			AddRow("gk_one", true, true, nil).
			AddRow("gk_two", true, false, "role has active backends"))

	rows, err := p.CleanupExpiredUsers(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Dropped)
	assert.Equal(t, "", rows[0].Error)
	assert.Equal(t, "role has active backends", rows[1].Error)
}

func TestPostgresProvider_HealthCheck_Unhealthy_PingFails(t *testing.T) {
	p, mock, cleanup := newMockProvider(t)
	defer cleanup()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.HealthUnhealthy, status.State)
}

func TestPostgresProvider_HealthCheck_Healthy(t *testing.T) {
	p, mock, cleanup := newMockProvider(t)
	defer cleanup()

	mock.ExpectPing()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT check_name, status, details FROM validate_setup()")).
		WillReturnRows(sqlmock.NewRows([]string{"check_name", "status", "details"}).
			AddRow("admin_role", "green", "ok").
			AddRow("audit_log", "green", "ok"))

	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.HealthHealthy, status.State)
}

func TestPostgresProvider_HealthCheck_NotInitialized(t *testing.T) {
	p := New(nil)
	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.HealthUnhealthy, status.State)
}

func TestPostgresProvider_GetAvailableRolePacks(t *testing.T) {
	p := New(nil)
	packs, err := p.GetAvailableRolePacks(context.Background())
	require.NoError(t, err)
	assert.Len(t, packs, 3)
}

func TestPostgresProvider_InstallRolePack_WrongEngine(t *testing.T) {
	p := New(nil)
	err := p.InstallRolePack(context.Background(), provider.RolePack{Engine: "mysql", Definition: "gk_read"})
	require.Error(t, err)
}

func TestPostgresProvider_InstallRolePack_AlreadyPresent(t *testing.T) {
	p, mock, cleanup := newMockProvider(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT FROM pg_roles WHERE rolname = $1)")).
		WithArgs("gk_read").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := p.InstallRolePack(context.Background(), provider.RolePack{Engine: EngineName, Name: "read", Definition: "gk_read"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProvider_Close_Idempotent(t *testing.T) {
	p, mock, _ := newMockProvider(t)
	mock.ExpectClose()

	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))
}
