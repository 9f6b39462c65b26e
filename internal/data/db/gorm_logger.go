package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/vedablog/internal/platform/logger"
)

// GormLogger routes gorm's query log into the service logger.
// Every statement is logged at debug; slow ones at warn.
type GormLogger struct {
	log           *logger.Logger
	level         gormLogger.LogLevel
	slowThreshold time.Duration
}

func NewGormLogger(log *logger.Logger, slowThreshold time.Duration) *GormLogger {
	if slowThreshold <= 0 {
		slowThreshold = time.Second
	}
	return &GormLogger{log: log.With("component", "gorm"), level: gormLogger.Warn, slowThreshold: slowThreshold}
}

func (g *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Info {
		g.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Warn {
		g.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Error {
		g.log.Error(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormLogger.Error:
		g.log.Error("query failed", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds(), "error", err)
	case elapsed > g.slowThreshold && g.level >= gormLogger.Warn:
		g.log.Warn("slow query", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds())
	default:
		g.log.Debug("query", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds())
	}
}
