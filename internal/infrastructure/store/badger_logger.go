package store

import (
	"strings"

	"go-bus-tracking/internal/infrastructure/logger"
)

// badgerLogger routes badger's internal logging into the application logger.
type badgerLogger struct {
	log logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.log.Errorf(strings.TrimSuffix(format, "\n"), args...)
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.log.Warnf(strings.TrimSuffix(format, "\n"), args...)
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.log.Infof(strings.TrimSuffix(format, "\n"), args...)
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.log.Debugf(strings.TrimSuffix(format, "\n"), args...)
}
