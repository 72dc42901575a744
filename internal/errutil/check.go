package errutil

import (
	"log/slog"
)

// LogMsg logs the error at warning level with a custom message if it is not
// nil. Used for failures that must be surfaced but never abort the caller,
// such as a single eviction candidate failing to delete.
func LogMsg(err error, msg string, args ...any) {
	if err != nil {
		allArgs := append([]any{"error", err}, args...)
		slog.Warn(msg, allArgs...)
	}
}

// ReportError logs an unexpected error.
// It funnels errors through a centralized reporting mechanism (currently slog).
func ReportError(err error, msg string, args ...any) {
	if err != nil {
		allArgs := append([]any{"error", err}, args...)
		slog.Error(msg, allArgs...)
	}
}
