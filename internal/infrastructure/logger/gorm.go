package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowSQL = 200 * time.Millisecond

// GormLogger adapts zap to gormlogger.Interface. Statements are logged at
// debug, slow ones at warn and failures at error; record-not-found is not a
// failure since the ledger repositories use it for "no such customer".
type GormLogger struct {
	base    *zap.Logger
	level   gormlogger.LogLevel
	slow    time.Duration
	withSQL bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets when a statement counts as slow; zero disables the warning
func WithSlowThreshold(d time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slow = d }
}

// WithFullSQL controls whether the rendered statement is attached to entries
func WithFullSQL(enabled bool) GormLoggerOption {
	return func(l *GormLogger) { l.withSQL = enabled }
}

// NewGormLogger creates a GormLogger writing through base
func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{base: base.Named("gorm"), level: level, slow: defaultSlowSQL, withSQL: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode returns a copy at level, leaving l unchanged
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level >= min {
		l.base.Sugar().Logf(lvl, msg, data...)
	}
}

// Trace logs one executed statement with the request, owner and trace ids
// found on ctx
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if err != nil && errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	elapsed := time.Since(begin)
	var (
		lvl zapcore.Level
		msg string
	)
	switch {
	case err != nil && l.level >= gormlogger.Error:
		lvl, msg = zapcore.ErrorLevel, "SQL Error"
	case err == nil && l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		lvl, msg = zapcore.WarnLevel, "SLOW SQL"
	case err == nil && l.level >= gormlogger.Info:
		lvl, msg = zapcore.DebugLevel, "SQL Query"
	default:
		return
	}

	sql, rows := fc()
	fields := []zap.Field{zap.Duration("elapsed", elapsed), zap.Int64("rows", rows)}
	if l.withSQL {
		fields = append(fields, zap.String("sql", sql))
	}
	for key, val := range map[string]string{
		"request_id": GetRequestID(ctx),
		"owner_id":   GetOwnerID(ctx),
		"trace_id":   GetTraceID(ctx),
	} {
		if val != "" {
			fields = append(fields, zap.String(key, val))
		}
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if lvl == zapcore.WarnLevel {
		fields = append(fields, zap.Duration("threshold", l.slow))
	}
	l.base.Log(lvl, msg, fields...)
}

// MapGormLogLevel derives the GORM level from the application log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	}
	return gormlogger.Warn
}
