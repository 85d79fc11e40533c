package plugin

import (
	"log"

	"go.uber.org/zap"

	"katydid-common-validation/pkg/validation"
)

// Logger 日志接口（依赖倒置）
// args 为键值对形式的附加字段
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// defaultLogger 默认日志实现（标准库）
type defaultLogger struct{}

func (l *defaultLogger) Info(msg string, args ...any) {
	log.Println(append([]any{"[INFO]", msg}, args...)...)
}

func (l *defaultLogger) Error(msg string, args ...any) {
	log.Println(append([]any{"[ERROR]", msg}, args...)...)
}

// zapLogger zap 适配器，生产环境的 Logger 实现
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *zapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

// NewZapLogger 用 zap 实例创建 Logger
func NewZapLogger(logger *zap.Logger) Logger {
	if logger == nil {
		return &defaultLogger{}
	}
	return &zapLogger{sugar: logger.Sugar()}
}

// TraceHook 验证运行日志钩子
// 实现 validation.Hook，记录每次运行的目标字段和结果
type TraceHook struct {
	enabled bool
	logger  Logger
}

// NewTraceHook 创建日志钩子，默认使用标准库日志
func NewTraceHook() *TraceHook {
	return &TraceHook{
		enabled: true,
		logger:  &defaultLogger{},
	}
}

// WithLogger 设置日志器（链式调用）
func (p *TraceHook) WithLogger(logger Logger) *TraceHook {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithEnabled 设置启用开关（链式调用）
func (p *TraceHook) WithEnabled(enabled bool) *TraceHook {
	p.enabled = enabled
	return p
}

// BeforeValidate 验证前钩子
func (p *TraceHook) BeforeValidate(v *validation.Validator, targets []string) {
	if !p.enabled {
		return
	}
	p.logger.Info("validation run started", "targets", targets)
}

// AfterValidate 验证后钩子
func (p *TraceHook) AfterValidate(v *validation.Validator, ok bool) {
	if !p.enabled {
		return
	}
	if ok {
		p.logger.Info("validation run passed")
		return
	}
	p.logger.Error("validation run failed",
		"errorCount", v.ErrorCount(),
		"errors", v.Errors(),
	)
}
