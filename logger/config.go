package logger

import (
	"io"
	"os"
)

// Config holds the configuration for the logger
type Config struct {
	Level        LogLevel
	Format       OutputFormat
	Outputs      []io.Writer
	Environment  string // "development" or "production"
	Subsystem    string
	FileConfig   *FileConfig
	EnableCaller bool // Include caller information
	CallerSkip   int  // Number of stack frames to skip when logging caller
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Level:        TraceLevel,
		Format:       DefaultFormat,
		Outputs:      []io.Writer{os.Stdout},
		Environment:  "development",
		Subsystem:    "",
		EnableCaller: false,
		CallerSkip:   0,
	}
}
