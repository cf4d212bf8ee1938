package log

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Fields is an alias so callers don't need to import logrus
type Fields = logrus.Fields

var logger = logrus.New()

func init() {
	logger.SetFormatter(textFormatter())
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:          true,
		DisableSorting:         true,
		DisableLevelTruncation: true,
	}
}

// Configure sets the level and the output format of the logger.
// format is either "text" or "json"
func Configure(level, format string) error {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(textFormatter())
	default:
		return errors.Errorf("unknown log format %q", format)
	}
	return nil
}

// SetOutput redirects the log output
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// IsDebug reports if debug logs are emitted
func IsDebug() bool {
	return logger.IsLevelEnabled(logrus.DebugLevel)
}

// WithFields returns an entry carrying the given fields
func WithFields(fields Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

// Info logs at info level
func Info(msg string) {
	logger.Info(msg)
}

// Debugf logs at debug level
func Debugf(msg string, args ...interface{}) {
	logger.Debugf(msg, args...)
}

// Warnf logs at warn level
func Warnf(msg string, args ...interface{}) {
	logger.Warnf(msg, args...)
}
