package postgres

import "time"

// PoolConfig bounds the PostgreSQL provider's admin connection pool.
type PoolConfig struct {
	MaxConnections   int
	IdleTimeout      time.Duration
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
	QueryTimeout     time.Duration
}

// DefaultPoolConfig returns conservative defaults suitable for a single-tenant admin pool.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConnections:   10,
		IdleTimeout:      30 * time.Second,
		ConnectTimeout:   10 * time.Second,
		StatementTimeout: 30 * time.Second,
		QueryTimeout:     25 * time.Second,
	}
}

// OperationTimeout is the wall-clock ceiling placed on a single
// provider operation: connect time plus statement time.
func (c PoolConfig) OperationTimeout() time.Duration {
	return c.ConnectTimeout + c.StatementTimeout
}
