package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Environment variables that override Config.
const (
	// EnvLogLevel overrides Config.Level when it names a valid level.
	EnvLogLevel = "SLIPSTREAM_LOG_LEVEL"
	// EnvLogNoColor overrides Config.NoColor when it parses as a bool.
	EnvLogNoColor = "SLIPSTREAM_LOG_NOCOLOR"
)

// Config controls the console logger.
type Config struct {
	Level   string
	NoColor bool
}

// New returns a console logger writing to out. Environment variables take
// precedence over cfg.
func New(out io.Writer, cfg Config) zerolog.Logger {
	applyEnvOverrides(&cfg)
	level, _ := ParseLevel(cfg.Level)

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.NoColor,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// NewStderr is New on os.Stderr, leaving stdout to frame payloads.
func NewStderr(cfg Config) zerolog.Logger {
	return New(os.Stderr, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if raw := os.Getenv(EnvLogLevel); strings.TrimSpace(raw) != "" {
		if _, ok := ParseLevel(raw); ok {
			cfg.Level = raw
		}
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(EnvLogNoColor))); err == nil {
		cfg.NoColor = v
	}
}

// ParseLevel maps a level name to a zerolog level. Unknown or empty names
// yield InfoLevel and false.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
