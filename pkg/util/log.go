package util

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is shared by every package. Warnings and errors go to stderr so
// they never interleave with diffs and prompts on stdout.
var Logger = logrus.New()

// Log output formats accepted by ConfigureLogging.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.WarnLevel)
	Logger.SetFormatter(textFormatter())
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
}

// ConfigureLogging applies a level name ("debug", "warn", ...) and an
// output format in one call.
func ConfigureLogging(level, format string) error {
	if err := SetLogLevel(level); err != nil {
		return err
	}
	switch format {
	case "", LogFormatText:
		Logger.SetFormatter(textFormatter())
	case LogFormatJSON:
		Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05Z07:00"})
	default:
		return fmt.Errorf("unknown log format %q (valid: text, json)", format)
	}
	return nil
}

// SetLogLevel sets the logging level
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetLogOutput redirects log output.
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// WithDevice returns a logger carrying the device address.
func WithDevice(device string) *logrus.Entry {
	return Logger.WithField("device", device)
}

// WithJob returns a logger carrying the template path and load format of a job.
func WithJob(template, format string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{
		"template": template,
		"format":   format,
	})
}

// WithPhase returns a logger tagged with the phase an error belongs to.
func WithPhase(err error) *logrus.Entry {
	entry := Logger.WithField("exit_code", ExitCode(err))
	if pe, ok := asPhaseError(err); ok {
		entry = entry.WithField("phase", pe.Phase.String())
	}
	return entry
}

func Debugf(format string, args ...any) { Logger.Debugf(format, args...) }

func Warnf(format string, args ...any) { Logger.Warnf(format, args...) }
