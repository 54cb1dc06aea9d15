// Package logging builds the process-wide structured logger from the
// logging.* configuration section, on top of the same go-log package the
// teacher's code generator used for its own diagnostics.
package logging

import (
	stdlog "log"
	"os"

	"github.com/rsms/go-log"
)

// Format names the logging.format setting. It is parsed and stored on
// Configuration, but NewLogger does not consult it: Full, Compact and JSON
// all produce the same go-log output.
type Format int

const (
	FormatFull Format = iota
	FormatCompact
	FormatJSON
)

func ParseFormat(s string) Format {
	switch s {
	case "compact":
		return FormatCompact
	case "json":
		return FormatJSON
	default:
		return FormatFull
	}
}

// Configuration mirrors the logging.* section of the config file, with the
// same defaults the original implementation documented for its own
// LoggingConfiguration: level "warn", stdlog forwarded at "info".
type Configuration struct {
	Format        Format
	Level         string // "debug" | "info" | "warn"
	Filter        string // stored as configured; NewLogger does not apply it
	WithModule    bool
	WithFilename  bool
	ForwardStdlog bool
	StdlogLevel   string
}

func DefaultConfiguration() Configuration {
	return Configuration{
		Format:        FormatFull,
		Level:         "warn",
		WithModule:    true,
		ForwardStdlog: true,
		StdlogLevel:   "info",
	}
}

func (c Configuration) level() log.Level {
	switch c.Level {
	case "debug":
		return log.LevelDebug
	case "info":
		return log.LevelInfo
	default:
		return log.LevelWarn
	}
}

// NewLogger configures the shared go-log root logger according to c and
// returns it. go-log has a single global logger by design (the code
// generator and the redis client both threaded *log.Logger around as
// log.RootLogger); this centralizes the configuration knobs rather than
// reimplementing go-log's own formatting.
func (c Configuration) NewLogger() *log.Logger {
	root := log.RootLogger
	root.Level = c.level()
	root.SetWriter(os.Stderr)
	root.EnableFeatures(log.FSync)

	if c.WithModule || c.WithFilename {
		root.EnableFeatures(log.FPrefixInfo)
	} else {
		root.DisableFeatures(log.FPrefixInfo)
	}

	if c.ForwardStdlog {
		stdlog.SetFlags(0)
		stdlogLevel := Configuration{Level: c.StdlogLevel}.level()
		stdlog.SetOutput(stdlogBridge{root, stdlogLevel})
	}
	return root
}

// stdlogBridge lets third-party packages that only know the standard
// library's log.Logger still end up routed through go-log, instead of
// writing straight to stderr out of band from everything else's formatting.
type stdlogBridge struct {
	logger *log.Logger
	level  log.Level
}

func (b stdlogBridge) Write(p []byte) (int, error) {
	msg := string(p)
	switch b.level {
	case log.LevelDebug:
		b.logger.Debug("%s", msg)
	case log.LevelWarn:
		b.logger.Warn("%s", msg)
	default:
		b.logger.Info("%s", msg)
	}
	return len(p), nil
}
