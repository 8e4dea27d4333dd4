// Package logger configures the process-wide logrus logger.
package logger

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Init sets the output, level and formatter ("json" or "text") of the
// standard logrus logger.
func Init(out io.Writer, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	switch format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}

	logrus.SetOutput(out)
	logrus.SetLevel(lvl)
	logrus.WithFields(logrus.Fields{"level": lvl.String(), "format": format}).Debug("logger initialized")
	return nil
}
