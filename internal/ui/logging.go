package ui

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Logger is the console logger used by commands. Internal packages take the
// structured *zap.Logger returned by Zap.
type Logger struct {
	Debug bool

	log   *zap.Logger
	sugar *zap.SugaredLogger
}

func NewLogger(debug bool) *Logger {
	return newLogger(debug, os.Stdout, os.Stderr)
}

func newLogger(debug bool, out, errOut *os.File) *Logger {
	low := zapcore.InfoLevel
	if debug {
		low = zapcore.DebugLevel
	}

	lowPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return low <= lvl && lvl < zapcore.ErrorLevel
	})
	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder(out), zapcore.Lock(out), lowPriority),
		zapcore.NewCore(consoleEncoder(errOut), zapcore.Lock(errOut), highPriority),
	)

	l := zap.New(core).Named("branchd")
	return &Logger{Debug: debug, log: l, sugar: l.Sugar()}
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	l := zap.NewNop()
	return &Logger{log: l, sugar: l.Sugar()}
}

func consoleEncoder(f *os.File) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if term.IsTerminal(int(f.Fd())) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}

func (l *Logger) Zap() *zap.Logger { return l.log }

func (l *Logger) Debugf(format string, args ...any) {
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func (l *Logger) Sync() {
	_ = l.log.Sync()
}
