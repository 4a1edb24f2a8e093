// Package postgres implements the PostgreSQL provider: the concrete
// Provider for the "postgresql" engine tag, built around a connection pool
// opened from a connection record, parameterized statements against the
// privileged SQL functions the bootstrap schema installs, and
// sqlmock-driven tests.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/gatekeeper-project/gatekeeper/logger"
	"github.com/gatekeeper-project/gatekeeper/provider"
	"github.com/gatekeeper-project/gatekeeper/provider/postgres/bootstrap"
)

// EngineName is this provider's engine tag.
const EngineName = "postgresql"

// ProviderVersion is this implementation's version, independent of the
// target database's server version.
const ProviderVersion = "1.0.0"

// PostgresProvider is the concrete Provider for PostgreSQL.
type PostgresProvider struct {
	db    *sql.DB
	conn  provider.Connection
	pool  PoolConfig
	log   logger.Logger

	initialized atomic.Bool
	closeOnce   sync.Once
}

// New constructs an uninitialized PostgresProvider with the default pool
// bounds. Call Initialize before any other operation.
func New(log logger.Logger) *PostgresProvider {
	if log == nil {
		log = logger.NewZerologLogger(logger.DefaultConfig())
	}
	return &PostgresProvider{
		pool: DefaultPoolConfig(),
		log:  log.WithSubsystem("postgres"),
	}
}

// WithPoolConfig overrides the default pool bounds. Must be called before
// Initialize.
func (p *PostgresProvider) WithPoolConfig(cfg PoolConfig) *PostgresProvider {
	p.pool = cfg
	return p
}

// Register installs a factory for EngineName into reg, the way a caller
// wires this provider with one line at startup.
func Register(reg *provider.Registry, log logger.Logger) {
	reg.Register(EngineName, func() (provider.Provider, error) {
		return New(log), nil
	})
}

func (p *PostgresProvider) Engine() string  { return EngineName }
func (p *PostgresProvider) Version() string { return ProviderVersion }

// Initialize opens the admin connection pool, probes it with a ping, and
// verifies the bootstrap schema by calling validate_setup(). It fails when
// the ping fails or when validate_setup() cannot be called (the schema is
// absent or the admin principal may not execute it); the per-check status
// it returns is not inspected here, HealthCheck reports it. Pool errors
// after a successful Initialize do not tear the provider down; later
// operations reacquire a connection on their own.
func (p *PostgresProvider) Initialize(ctx context.Context, conn provider.Connection, creds provider.AdminCredentials) error {
	p.conn = conn

	adminDSN := GenerateDSN(conn, creds.Username, creds.Password)
	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return provider.NewProviderInitError(EngineName, fmt.Errorf("opening admin pool: %w", err))
	}

	db.SetMaxOpenConns(p.pool.MaxConnections)
	db.SetConnMaxIdleTime(p.pool.IdleTimeout)
	db.SetConnMaxLifetime(p.pool.IdleTimeout * 2)

	probeCtx, cancel := context.WithTimeout(ctx, p.pool.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(probeCtx); err != nil {
		p.log.Warn("admin pool probe failed", logger.Err(err))
		return provider.NewProviderInitError(EngineName, fmt.Errorf("probing admin pool: %w", err))
	}
	if _, err := bootstrap.ValidateSetup(probeCtx, db); err != nil {
		p.log.Warn("bootstrap schema check failed", logger.Err(err))
		db.Close()
		return provider.NewProviderInitError(EngineName, fmt.Errorf("verifying bootstrap schema: %w", err))
	}

	p.db = db
	p.initialized.Store(true)
	p.log.Info("postgres provider initialized",
		logger.String("host", conn.Host),
		logger.Int("port", conn.Port),
		logger.String("database", conn.Database))
	return nil
}

func (p *PostgresProvider) requireInitialized() error {
	if !p.initialized.Load() || p.db == nil {
		return provider.NewNotInitializedError(EngineName)
	}
	return nil
}

// HealthCheck pings the database, then asks the bootstrap's
// validate_setup() for per-check status. An uninitialized provider or a
// failed ping is unhealthy; a failed validate_setup() call or any
// non-green check is degraded; all checks green is healthy.
func (p *PostgresProvider) HealthCheck(ctx context.Context) (*provider.HealthStatus, error) {
	now := time.Now().UTC()
	if err := p.requireInitialized(); err != nil {
		return &provider.HealthStatus{State: provider.HealthUnhealthy, Message: "provider not initialized", CheckedAt: now}, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, p.pool.ConnectTimeout)
	defer cancel()
	if err := p.db.PingContext(pingCtx); err != nil {
		return &provider.HealthStatus{
			State:     provider.HealthUnhealthy,
			Message:   "database connectivity failed",
			CheckedAt: now,
			Details:   map[string]any{"pool": p.poolStats()},
		}, nil
	}

	checks, err := bootstrap.ValidateSetup(ctx, p.db)
	if err != nil {
		return &provider.HealthStatus{
			State:     provider.HealthDegraded,
			Message:   "validate_setup check failed",
			CheckedAt: now,
			Details:   map[string]any{"pool": p.poolStats(), "error": err.Error()},
		}, nil
	}

	state := provider.HealthHealthy
	message := "all checks green"
	checkMap := make(map[string]string, len(checks))
	for _, c := range checks {
		checkMap[c.Name] = c.Status
		if c.Status != "green" {
			state = provider.HealthDegraded
			message = "one or more setup checks failed"
		}
	}

	return &provider.HealthStatus{
		State:     state,
		Message:   message,
		CheckedAt: now,
		Details:   map[string]any{"pool": p.poolStats(), "checks": checkMap},
	}, nil
}

func (p *PostgresProvider) poolStats() provider.PoolStats {
	if p.db == nil {
		return provider.PoolStats{}
	}
	s := p.db.Stats()
	return provider.PoolStats{Total: s.OpenConnections, Idle: s.Idle, Waiting: int(s.WaitCount)}
}

// CreateEphemeralUser runs the create flow: compute expiry,
// open a transaction, invoke create_ephemeral, commit and build the DSN.
// The connection is always released, on every path.
func (p *PostgresProvider) CreateEphemeralUser(ctx context.Context, req provider.CreateUserRequest) (*provider.CreateUserResult, error) {
	if err := p.requireInitialized(); err != nil {
		return nil, err
	}

	if !provider.ValidateEphemeralName(req.Name) {
		return nil, provider.NewUserCreationFailedError(EngineName, fmt.Errorf("name %q does not match the gk_ pattern", req.Name))
	}

	expiresAt := time.Now().UTC().Add(time.Duration(req.TTLMinutes) * time.Minute)

	opCtx, cancel := context.WithTimeout(ctx, p.pool.OperationTimeout())
	defer cancel()

	tx, err := p.db.BeginTx(opCtx, nil)
	if err != nil {
		return nil, provider.NewUserCreationFailedError(EngineName, fmt.Errorf("beginning transaction: %w", err))
	}

	_, err = tx.ExecContext(opCtx,
		`SELECT create_ephemeral($1, $2, $3, $4, $5)`,
		req.Name, req.Password, expiresAt, req.RolePack, req.ConnectionLimit,
	)
	if err != nil {
		tx.Rollback()
		return nil, classifyCreateError(EngineName, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, provider.NewUserCreationFailedError(EngineName, fmt.Errorf("committing transaction: %w", err))
	}

	p.log.Debug("ephemeral user created",
		logger.String("name", req.Name),
		logger.String("role_pack", req.RolePack),
		logger.Int("ttl_minutes", req.TTLMinutes))

	return &provider.CreateUserResult{
		Name:            req.Name,
		DSN:             GenerateDSN(p.conn, req.Name, req.Password),
		ExpiresAt:       expiresAt,
		ConnectionLimit: req.ConnectionLimit,
		Metadata:        map[string]string{"engine_version": ProviderVersion},
	}, nil
}

// DropUser invokes the drop(name) helper. Its boolean return distinguishes
// removed (true) from already-absent (false); dropUser never fails for
// absence.
func (p *PostgresProvider) DropUser(ctx context.Context, name string) (bool, error) {
	if err := p.requireInitialized(); err != nil {
		return false, err
	}

	opCtx, cancel := context.WithTimeout(ctx, p.pool.OperationTimeout())
	defer cancel()

	var dropped bool
	err := p.db.QueryRowContext(opCtx, `SELECT drop($1)`, name).Scan(&dropped)
	if err != nil {
		return false, provider.NewUserDropFailedError(EngineName, fmt.Errorf("dropping %q: %w", name, err))
	}

	p.log.Debug("drop user", logger.String("name", name), logger.Bool("dropped", dropped))
	return dropped, nil
}

// ListEphemeralUsers projects list_ephemeral()'s rows into EphemeralUser,
// coercing active-connection counts to int and expiry to time.Time.
func (p *PostgresProvider) ListEphemeralUsers(ctx context.Context) ([]provider.EphemeralUser, error) {
	if err := p.requireInitialized(); err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, p.pool.OperationTimeout())
	defer cancel()

	rows, err := p.db.QueryContext(opCtx,
		`SELECT name, expiry, is_expired, connection_limit, active_connections FROM list_ephemeral()`)
	if err != nil {
		return nil, provider.NewUserListFailedError(EngineName, err)
	}
	defer rows.Close()

	var users []provider.EphemeralUser
	for rows.Next() {
		var (
			u                 provider.EphemeralUser
			activeConnections int64
		)
		if err := rows.Scan(&u.Name, &u.Expiry, &u.IsExpired, &u.ConnectionLimit, &activeConnections); err != nil {
			return nil, provider.NewUserListFailedError(EngineName, err)
		}
		u.ActiveConnections = int(activeConnections)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, provider.NewUserListFailedError(EngineName, err)
	}
	return users, nil
}

// CleanupExpiredUsers invokes cleanup_expired(older_than_minutes) and
// returns one row per candidate. Candidates are only principals already
// past their expiry plus the grace period (or with no expiry at all), so
// every row has WasExpired set; a row reports either a successful drop or
// a failed one with its error text. Principals still inside the grace
// period are not returned.
func (p *PostgresProvider) CleanupExpiredUsers(ctx context.Context, olderThanMinutes int) ([]provider.CleanupRow, error) {
	if err := p.requireInitialized(); err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, p.pool.OperationTimeout())
	defer cancel()

	rows, err := p.db.QueryContext(opCtx,
		`SELECT name, was_expired, dropped, error_message FROM cleanup_expired($1)`, olderThanMinutes)
	if err != nil {
		return nil, provider.NewCleanupFailedError(EngineName, err)
	}
	defer rows.Close()

	var results []provider.CleanupRow
	for rows.Next() {
		var (
			r     provider.CleanupRow
			errMsg sql.NullString
		)
		if err := rows.Scan(&r.Name, &r.WasExpired, &r.Dropped, &errMsg); err != nil {
			return nil, provider.NewCleanupFailedError(EngineName, err)
		}
		r.Error = errMsg.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, provider.NewCleanupFailedError(EngineName, err)
	}

	p.log.Info("cleanup completed", logger.Int("candidates", len(results)))
	return results, nil
}

// GetAvailableRolePacks returns the three packs this provider surfaces:
// read, write, admin, at RolePackVersion.
func (p *PostgresProvider) GetAvailableRolePacks(ctx context.Context) ([]provider.RolePack, error) {
	return getAvailableRolePacks(), nil
}

// InstallRolePack is a no-op when the pack's role already exists (it was
// written by the bootstrap). Refuses packs tagged for another engine.
func (p *PostgresProvider) InstallRolePack(ctx context.Context, pack provider.RolePack) error {
	if pack.Engine != EngineName {
		return provider.NewRolePackError(EngineName, fmt.Errorf("role pack engine %q does not match provider engine %q", pack.Engine, EngineName))
	}
	if err := p.requireInitialized(); err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, p.pool.OperationTimeout())
	defer cancel()

	var exists bool
	err := p.db.QueryRowContext(opCtx, `SELECT EXISTS(SELECT FROM pg_roles WHERE rolname = $1)`, pack.Definition).Scan(&exists)
	if err != nil {
		return provider.NewRolePackError(EngineName, err)
	}
	if exists {
		return nil
	}

	_, err = p.db.ExecContext(opCtx, fmt.Sprintf("CREATE ROLE %s WITH NOLOGIN", pack.Definition))
	if err != nil {
		return provider.NewRolePackError(EngineName, err)
	}
	return nil
}

// GenerateDSN builds the PostgreSQL connection string for name/password
// against conn. Delegates to the package-level DSN shaper so callers who
// only have a Connection (no initialized provider) can still build one.
func (p *PostgresProvider) GenerateDSN(conn provider.Connection, name, password string) string {
	return GenerateDSN(conn, name, password)
}

// TestConnection performs a best-effort reachability check of dsn using a
// throwaway connection pool.
func (p *PostgresProvider) TestConnection(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening test connection: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, p.pool.ConnectTimeout)
	defer cancel()
	return db.PingContext(pingCtx)
}

// Close releases the admin pool. Safe to call more than once.
func (p *PostgresProvider) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		if p.db != nil {
			err = p.db.Close()
		}
		p.initialized.Store(false)
	})
	return err
}
