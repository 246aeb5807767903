package config

import (
	"context"
	"os"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

// InitLogger configures the process-wide logger from cfg and returns it.
func InitLogger(cfg LogConfig) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		l.WithError(err).Warnf("unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	logger = l
	return l
}

// Logger returns the process-wide logger.
func Logger() *logrus.Logger {
	return logger
}

// WithContext returns a log entry tagged with the request id carried by ctx, if any.
func WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(logger)
	if ctx == nil {
		return entry
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		entry = entry.WithField("request_id", reqID)
	}
	return entry
}
