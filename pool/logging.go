package pool

import (
	"os"

	"github.com/sirupsen/logrus"
)

// log is the package-wide structured logger. Level defaults to Info;
// callers running inside cmd/poolctl can raise it to Debug via
// poolconfig.
var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// SetLevel adjusts the package-wide log level. Exported so
// poolconfig/cmd can wire a configured verbosity through without this
// package depending on poolconfig.
func SetLevel(level logrus.Level) {
	log.SetLevel(level)
}

func debugf(subsystem, format string, args ...interface{}) {
	log.WithField("subsystem", subsystem).Debugf(format, args...)
}

func errorf(subsystem, format string, args ...interface{}) {
	log.WithField("subsystem", subsystem).Errorf(format, args...)
}

func fatalf(subsystem, format string, args ...interface{}) {
	log.WithField("subsystem", subsystem).Fatalf(format, args...)
}
