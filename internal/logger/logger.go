package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// serviceName tags every log line. The API server, the workers, and the
// CLI tools all log through Setup, so aggregated output stays attributable.
const serviceName = "detprep"

// Setup initializes the process-wide zerolog logger.
//   - level: log level string (trace, debug, info, warn, error, fatal, panic)
//   - format: "json" for production, "pretty" for human-readable dev output
func Setup(level, format string) zerolog.Logger {
	var writer io.Writer

	if format == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.Kitchen,
		}
	} else {
		writer = os.Stdout
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	log := zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Logger()

	return log
}
