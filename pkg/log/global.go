package log

import (
	"context"
	"sync"
)

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
	discard      = New(LevelError+1)
)

// SetDefault installs l as the package-level logger.
func SetDefault(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// Default returns the package-level logger. Until SetDefault is called
// it discards everything.
func Default() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()

	if l == nil {
		return discard
	}
	return l
}

func Debug(msg string, keysAndValues ...any) { Default().log(context.Background(), LevelDebug, msg, keysAndValues) }
func Info(msg string, keysAndValues ...any)  { Default().log(context.Background(), LevelInfo, msg, keysAndValues) }
func Warn(msg string, keysAndValues ...any)  { Default().log(context.Background(), LevelWarn, msg, keysAndValues) }
func Error(msg string, keysAndValues ...any) { Default().log(context.Background(), LevelError, msg, keysAndValues) }

func DebugCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().log(ctx, LevelDebug, msg, keysAndValues)
}

func InfoCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().log(ctx, LevelInfo, msg, keysAndValues)
}

func WarnCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().log(ctx, LevelWarn, msg, keysAndValues)
}

func ErrorCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().log(ctx, LevelError, msg, keysAndValues)
}
