package config

import (
	"os"

	"github.com/pterm/pterm"
)

// NewLogger builds the application logger from the log section.
func (l LogConfig) NewLogger() *pterm.Logger {
	logger := pterm.DefaultLogger.
		WithLevel(parseLevel(l.Level)).
		WithWriter(os.Stderr)
	if l.Format == "json" {
		logger = logger.WithFormatter(pterm.LogFormatterJSON)
	}
	return logger
}

func parseLevel(level string) pterm.LogLevel {
	switch level {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "warn":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	default:
		return pterm.LogLevelInfo
	}
}
