package logger

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the console format and level and an optional rotating file.
type Config struct {
	// Env picks the console format: JSON for prod, colored console for local, dev and docker.
	Env string
	// Level overrides the env default: debug, info, warn, error.
	Level string
	File  FileConfig
}

// New builds the process logger. The closer releases the log file, if any.
func New(cfg Config) (*zap.Logger, io.Closer, error) {
	zcfg, err := consoleConfig(cfg.Env)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := zcfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	l, closer := WithFile(l, cfg.File)
	return l, closer, nil
}

func consoleConfig(env string) (zap.Config, error) {
	switch env {
	case "prod":
		return zap.NewProductionConfig(), nil
	case "local", "dev", "docker":
		return zap.NewDevelopmentConfig(), nil
	default:
		return zap.Config{}, fmt.Errorf("unknown environment %q for logger", env)
	}
}
