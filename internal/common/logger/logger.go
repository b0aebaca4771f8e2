package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerKey struct{}

var (
	ctxLoggerKey = loggerKey{}
	loggingLevel = zap.NewAtomicLevelAt(zap.InfoLevel)

	debugColor = color.New(color.FgHiBlack)
	infoColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	fatalColor = color.New(color.FgHiRed)
	nameColor  = color.New(color.FgCyan)
	timeColor  = color.New(color.Faint)
)

// NewLogger builds the console logger used by the daemon and the CLI.
func NewLogger() (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.ConsoleSeparator = " "
	cfg.EncoderConfig.EncodeLevel = levelEncoder
	cfg.EncoderConfig.EncodeTime = timeEncoder
	cfg.EncoderConfig.EncodeName = func(s string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(nameColor.Sprintf("[%s]", s))
	}
	cfg.Level = loggingLevel

	lg, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return lg.Sugar(), nil
}

// WithLogger attaches logger to context
func WithLogger(ctx context.Context, lg *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey, lg)
}

// FromContext returns logger attached to context, or a no-op logger
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if lg, ok := ctx.Value(ctxLoggerKey).(*zap.SugaredLogger); ok {
		return lg
	}
	return zap.NewNop().Sugar()
}

func SetDebug() {
	loggingLevel.SetLevel(zap.DebugLevel)
}

func levelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.DebugLevel:
		enc.AppendString(debugColor.Sprint("DBG"))
	case zapcore.InfoLevel:
		enc.AppendString(infoColor.Sprint("INF"))
	case zapcore.WarnLevel:
		enc.AppendString(warnColor.Sprint("WRN"))
	case zapcore.ErrorLevel:
		enc.AppendString(errorColor.Sprint("ERR"))
	case zapcore.FatalLevel, zapcore.PanicLevel:
		enc.AppendString(fatalColor.Sprint("FTL"))
	default:
		enc.AppendString("UNK")
	}
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(timeColor.Sprint(t.Format("02/01/2006 15:04:05")))
}
