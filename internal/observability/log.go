// Package observability provides structured logging for the server.
// All log output goes to stderr: stdout belongs to the JSON-RPC transport.
package observability

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Init configures the logger. Call once at startup before serving.
func Init(debug bool) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// Logger returns the shared logger for ad-hoc use.
func Logger() *logrus.Logger {
	return log
}

// LogToolCall records one tool execution.
func LogToolCall(requestID, module, tool string, durationMs int64, status, errMsg string) {
	fields := logrus.Fields{
		"request_id":  requestID,
		"module":      module,
		"tool":        tool,
		"duration_ms": durationMs,
		"status":      status,
	}
	if errMsg != "" {
		fields["error"] = errMsg
		log.WithFields(fields).Warn("tool call failed")
		return
	}
	log.WithFields(fields).Info("tool call")
}

// LogError records a server-level error outside tool execution.
func LogError(requestID, where string, err error) {
	log.WithFields(logrus.Fields{
		"request_id": requestID,
		"where":      where,
	}).WithError(err).Error("server error")
}
