package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewHandler builds the JSON handler used by the settlement daemon. The
// standard slog keys are renamed so log lines match the ingestion schema of
// the surrounding tooling: timestamp, severity (upper-cased) and message.
func NewHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return attr
			}
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "timestamp"
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				attr.Key = "message"
			}
			return attr
		},
	})
}

// Setup installs the daemon-wide logger writing JSON to stdout, tagged with
// the service name and, when non-empty, the deployment environment. The
// returned logger is also made the slog default.
func Setup(service, env string) *slog.Logger {
	logger := slog.New(NewHandler(os.Stdout)).With("service", strings.TrimSpace(service))
	if env = strings.TrimSpace(env); env != "" {
		logger = logger.With("env", env)
	}
	slog.SetDefault(logger)
	return logger
}
