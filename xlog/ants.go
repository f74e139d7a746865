package xlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AntsXLogger receives the ants pool logs, they are only
// printed on the worker panics.
type AntsXLogger struct {
	logger XLogger
}

func (l *AntsXLogger) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Logf(zapcore.ErrorLevel, format, args...)
}

func NewAntsXLogger(logger XLogger) *AntsXLogger {
	l := &xLogger{}
	l.logger.Store(logger.
		zap().
		Named("Ants").
		WithOptions(zap.WrapCore(wrapComponentCore)),
	)
	return &AntsXLogger{
		logger: l,
	}
}
