// Package logger holds the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the shared logger. It is usable before Init is called (text
// formatter, info level) so packages and tests never see a nil logger.
var Log = logrus.New()

// Init configures Log from LOG_LEVEL and LOG_FORMAT.
// Call it once from main before anything else logs.
func Init() {
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	Log.SetOutput(os.Stdout)
}

// Redirect sends log output to w. The terminal client uses it to keep log
// lines off the screen it draws on.
func Redirect(w io.Writer) {
	Log.SetOutput(w)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
