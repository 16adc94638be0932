// Package log is a small structured logger with asynchronous delivery to
// pluggable transporters.
package log

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"socialfeed/pkg/queue"
)

const defaultQueueSize = 1000

// Logger fans entries out to its transporters from a background goroutine.
// Child loggers created with With share the parent's queue.
type Logger struct {
	level  *atomic.Int32
	queue  *queue.Ring[Entry]
	fields map[string]any
	closer func()
}

// New creates a logger writing entries at or above level to every transporter.
func New(level Level, transporters ...Transporter) *Logger {
	lvl := &atomic.Int32{}
	lvl.Store(int32(level))

	q := queue.New(defaultQueueSize, func(e Entry) {
		for _, t := range transporters {
			if err := t.Write(e); err != nil {
				fmt.Fprintf(os.Stderr, "log transporter %q failed: %v\n", t.Name(), err)
			}
		}
	})

	var once sync.Once
	return &Logger{
		level:  lvl,
		queue:  q,
		fields: map[string]any{},
		closer: func() {
			once.Do(func() {
				q.Close()
				for _, t := range transporters {
					_ = t.Close()
				}
			})
		},
	}
}

// SetLevel changes the minimum level for this logger and all its children.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

// With returns a child logger that adds the given fields to every entry.
func (l *Logger) With(keysAndValues ...any) *Logger {
	fields := make(map[string]any, len(l.fields)+len(keysAndValues)/2)
	for k, v := range l.fields {
		fields[k] = v
	}
	mergePairs(fields, keysAndValues)

	return &Logger{
		level:  l.level,
		queue:  l.queue,
		fields: fields,
		closer: l.closer,
	}
}

// Dropped reports how many entries were discarded because the queue was full.
func (l *Logger) Dropped() int64 {
	return l.queue.Dropped()
}

// Close flushes queued entries and closes the transporters.
func (l *Logger) Close() {
	l.closer()
}

func (l *Logger) log(ctx context.Context, level Level, msg string, keysAndValues []any) {
	if !l.Level().Enables(level) {
		return
	}

	entry := NewEntry(level, msg)
	entry.Caller = caller(3)
	for k, v := range l.fields {
		entry.Fields[k] = v
	}
	if ctx != nil {
		entry.RequestID = RequestIDFromContext(ctx)
		for k, v := range FieldsFromContext(ctx) {
			entry.Fields[k] = v
		}
	}
	mergePairs(entry.Fields, keysAndValues)

	l.queue.Send(*entry)
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

func (l *Logger) Debug(msg string, keysAndValues ...any) { l.log(context.Background(), LevelDebug, msg, keysAndValues) }
func (l *Logger) Info(msg string, keysAndValues ...any)  { l.log(context.Background(), LevelInfo, msg, keysAndValues) }
func (l *Logger) Warn(msg string, keysAndValues ...any)  { l.log(context.Background(), LevelWarn, msg, keysAndValues) }
func (l *Logger) Error(msg string, keysAndValues ...any) { l.log(context.Background(), LevelError, msg, keysAndValues) }

func (l *Logger) DebugCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, LevelDebug, msg, keysAndValues)
}

func (l *Logger) InfoCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, LevelInfo, msg, keysAndValues)
}

func (l *Logger) WarnCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, LevelWarn, msg, keysAndValues)
}

func (l *Logger) ErrorCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, LevelError, msg, keysAndValues)
}
