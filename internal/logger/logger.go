package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// New builds the JSON logger used by every component. An unknown level
// falls back to info.
func New(service, level string) *logrus.Logger {
	return newWithOutput(os.Stdout, service, level)
}

func newWithOutput(out io.Writer, service, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "ts",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	l.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	}

	l.AddHook(serviceHook(service))
	return l
}

// serviceHook stamps the service name onto every entry.
type serviceHook string

func (h serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h serviceHook) Fire(e *logrus.Entry) error {
	e.Data["service"] = string(h)
	return nil
}

// WithRequestID returns an entry carrying request_id when one is known.
func WithRequestID(l *logrus.Logger, requestID string) *logrus.Entry {
	if requestID == "" {
		return logrus.NewEntry(l)
	}
	return l.WithField("request_id", requestID)
}
