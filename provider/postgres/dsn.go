package postgres

import (
	"fmt"
	"net/url"

	"github.com/gatekeeper-project/gatekeeper/provider"
)

const defaultSSLMode = "prefer"

// GenerateDSN builds a postgresql:// connection string. Name and password
// are percent-encoded; the password must never appear in logs (callers log
// everything about a create except this return value).
func GenerateDSN(conn provider.Connection, name, password string) string {
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}
	return fmt.Sprintf("postgresql://%s@%s:%d/%s?sslmode=%s",
		url.UserPassword(name, password).String(),
		conn.Host,
		conn.Port,
		conn.Database,
		sslMode,
	)
}
