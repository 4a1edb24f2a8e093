package logger

// FileConfig holds file rotation configuration for the operator-facing
// process log (not the database-resident audit log gatekeeper_audit_log
// persists via provider/postgres/audit.go).
type FileConfig struct {
	Filename   string // File path
	MaxSize    int    // Maximum size in megabytes
	MaxAge     int    // Maximum age in days
	MaxBackups int    // Maximum number of backup files
	Compress   bool   // Whether to compress rotated files
}

// DefaultFileConfig returns a rotation policy sized for a long-lived agent
// process: frequent small files rather than the occasional large one,
// since credential issuance and revocation logs are read during incident
// response, not bulk-analyzed after the fact.
func DefaultFileConfig(filename string) *FileConfig {
	return &FileConfig{
		Filename:   filename,
		MaxSize:    20, // 20MB
		MaxAge:     14, // 14 days
		MaxBackups: 5,  // 5 backup files
		Compress:   true,
	}
}
