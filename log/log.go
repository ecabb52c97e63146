package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

// Init configures the process-wide logger. Unknown levels fall back to info.
func Init(level string, pretty bool) {
	Logger.Out = os.Stdout

	if pretty {
		Logger.Formatter = &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "02-01-2006 15:04:05",
			ForceColors:     true,
		}
	} else {
		Logger.Formatter = &logrus.JSONFormatter{}
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Logger.SetLevel(logrus.InfoLevel)
		Logger.WithField("level", level).Warn("Unknown log level, using info")
		return
	}
	Logger.SetLevel(lvl)
}
