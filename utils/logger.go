package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	InfoLogger  = logrus.New()
	ErrorLogger = logrus.New()
)

// InitLogger configures both loggers. Unknown levels fall back to info.
func InitLogger(level string) {
	InfoLogger.SetOutput(os.Stdout)
	InfoLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	ErrorLogger.SetOutput(os.Stderr)
	ErrorLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	InfoLogger.SetLevel(lvl)
	ErrorLogger.SetLevel(logrus.ErrorLevel)
}
