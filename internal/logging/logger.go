package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the service logger: JSON lines on stdout, mirrored to Logstash
// when logstashAddr is set. The returned closer releases the Logstash connection.
func New(level, logstashAddr string) (*logrus.Logger, io.Closer) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
	})

	parsed, levelErr := logrus.ParseLevel(level)
	if levelErr != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	var closer io.Closer = nopCloser{}
	out := io.Writer(os.Stdout)
	if logstashAddr != "" {
		if writer, err := NewLogstashWriter(logstashAddr); err == nil {
			out = io.MultiWriter(os.Stdout, writer)
			closer = writer
		} else {
			logger.WithError(err).Warn("logstash sink disabled")
		}
	}
	logger.SetOutput(out)
	if levelErr != nil {
		logger.WithField("level", level).Warn("unknown log level, using info")
	}
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
