package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowThreshold 慢查询阈值
const DefaultSlowThreshold = 200 * time.Millisecond

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

// GormLogger 把 gorm 日志转到 zap
type GormLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

// NewGormLogger 创建适配器, 未知级别按 warn 处理
func NewGormLogger(zl *zap.Logger, level string) *GormLogger {
	lv, ok := gormLevels[level]
	if !ok {
		lv = gormlogger.Warn
	}
	return &GormLogger{log: OrNop(zl).Named("gorm"), level: lv, slow: DefaultSlowThreshold}
}

// LogMode 返回指定级别的副本
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

// Trace 记录单条SQL: 出错记 error, 慢查询记 warn, info 级别下其余记 debug.
// 记录不存在不算错误.
func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	fields := func() []zap.Field {
		sql, rows := fc()
		return []zap.Field{zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed)}
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		if l.level >= gormlogger.Error {
			l.log.Error("SQL执行失败", append(fields(), zap.Error(err))...)
		}
	case l.slow > 0 && elapsed > l.slow:
		if l.level >= gormlogger.Warn {
			l.log.Warn("慢查询", fields()...)
		}
	case l.level >= gormlogger.Info:
		l.log.Debug("SQL", fields()...)
	}
}
