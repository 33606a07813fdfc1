package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger implements gorm.io/gorm/logger.Interface on top of Logger.
type GormLogger struct {
	log           Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger maps a textual level ("silent", "error", "warn", "info") to GORM's.
func NewGormLogger(log Logger, level string) *GormLogger {
	var lvl gormlogger.LogLevel
	switch level {
	case "silent":
		lvl = gormlogger.Silent
	case "error":
		lvl = gormlogger.Error
	case "warn", "warning", "":
		lvl = gormlogger.Warn
	case "info":
		lvl = gormlogger.Info
	default:
		lvl = gormlogger.Warn
	}
	return &GormLogger{log: log, logLevel: lvl, slowThreshold: 200 * time.Millisecond}
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &GormLogger{log: g.log, logLevel: level, slowThreshold: g.slowThreshold}
}

func (g *GormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if g.logLevel >= gormlogger.Info {
		g.log.Info("gorm info", String("detail", fmt.Sprintf(msg, data...)))
	}
}

func (g *GormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if g.logLevel >= gormlogger.Warn {
		g.log.Warn("gorm warn", String("detail", fmt.Sprintf(msg, data...)))
	}
}

func (g *GormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if g.logLevel >= gormlogger.Error {
		g.log.Error("gorm error", String("detail", fmt.Sprintf(msg, data...)))
	}
}

// Trace logs SQL with rows affected and elapsed time. Not-found lookups are
// part of normal control flow and are not reported as errors.
func (g *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.logLevel == gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, context.Canceled):
		if g.logLevel >= gormlogger.Error {
			g.log.Error("gorm trace", String("sql", sql), Int64("rows", rows), Duration("elapsed", elapsed), Error(err))
		}
	case g.slowThreshold > 0 && elapsed > g.slowThreshold:
		if g.logLevel >= gormlogger.Warn {
			g.log.Warn("gorm trace slow", String("sql", sql), Int64("rows", rows), Duration("elapsed", elapsed))
		}
	case g.logLevel >= gormlogger.Info:
		g.log.Debug("gorm trace", String("sql", sql), Int64("rows", rows), Duration("elapsed", elapsed))
	}
}
