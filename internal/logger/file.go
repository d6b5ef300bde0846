package logger

import (
	"io"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig describes a rotating log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
}

// WithFile tees l into a rotating JSON log file at the same level.
// An empty path returns l unchanged. The returned closer flushes and closes the file.
func WithFile(l *zap.Logger, cfg FileConfig) (*zap.Logger, io.Closer) {
	if cfg.Path == "" {
		return l, nopCloser{}
	}

	w := &rotatingWriter{writer: &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}}
	file := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(w),
		l.Core(),
	)
	return l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, file)
	})), w
}

// rotatingWriter refuses writes after Close; lumberjack would otherwise reopen the file.
type rotatingWriter struct {
	writer io.WriteCloser

	mu     sync.Mutex
	closed bool
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.writer.Write(p)
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return w.writer.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
