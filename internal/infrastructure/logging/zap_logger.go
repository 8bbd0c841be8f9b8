package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var zapLogLevelMapping = map[Level]zapcore.Level{
	DebugLevel: zapcore.DebugLevel,
	InfoLevel:  zapcore.InfoLevel,
	WarnLevel:  zapcore.WarnLevel,
	ErrorLevel: zapcore.ErrorLevel,
	FatalLevel: zapcore.FatalLevel,
}

type zapLogger struct {
	base   *zap.Logger
	logger *zap.SugaredLogger
}

func newZapLogger(cfg *LoggerConfig, out io.Writer) *zapLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	level := zap.NewAtomicLevelAt(zapLogLevelMapping[ParseLevel(cfg.Level)])
	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)

	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(
			zap.String(string(AppName), cfg.AppName),
			zap.String(string(LoggerName), "zaplog"),
		)
	if cfg.Instance != "" {
		base = base.With(zap.String(string(Instance), cfg.Instance))
	}

	return &zapLogger{base: base, logger: base.Sugar()}
}

// WrapZap adapts an existing zap logger, e.g. one built on a test core.
func WrapZap(l *zap.Logger) Logger {
	base := l.WithOptions(zap.AddCallerSkip(1))
	return &zapLogger{base: base, logger: base.Sugar()}
}

func (l *zapLogger) Enabled(level Level) bool {
	return l.base.Core().Enabled(zapLogLevelMapping[level])
}

func (l *zapLogger) Debug(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	params := logParamsToZapParams(prepareLogInfo(cat, sub, extra))
	l.logger.Debugw(msg, params...)
}

func (l *zapLogger) Debugf(template string, args ...any) {
	l.logger.Debugf(template, args...)
}

func (l *zapLogger) Info(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	params := logParamsToZapParams(prepareLogInfo(cat, sub, extra))
	l.logger.Infow(msg, params...)
}

func (l *zapLogger) Infof(template string, args ...any) {
	l.logger.Infof(template, args...)
}

func (l *zapLogger) Warn(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	params := logParamsToZapParams(prepareLogInfo(cat, sub, extra))
	l.logger.Warnw(msg, params...)
}

func (l *zapLogger) Warnf(template string, args ...any) {
	l.logger.Warnf(template, args...)
}

func (l *zapLogger) Error(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	params := logParamsToZapParams(prepareLogInfo(cat, sub, extra))
	l.logger.Errorw(msg, params...)
}

func (l *zapLogger) Errorf(template string, args ...any) {
	l.logger.Errorf(template, args...)
}

func (l *zapLogger) Fatal(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	params := logParamsToZapParams(prepareLogInfo(cat, sub, extra))
	l.logger.Fatalw(msg, params...)
}

func (l *zapLogger) Fatalf(template string, args ...any) {
	l.logger.Fatalf(template, args...)
}

func (l *zapLogger) Sync() error {
	return l.logger.Sync()
}
