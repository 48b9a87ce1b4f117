package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how much the process logs.
type Options struct {
	Dir     string
	AppName string
	Level   zapcore.Level
}

// New builds the process-wide logger: a readable console core at INFO,
// a rotating JSON file at the configured level, and a separate rotating
// error-only file. Construct once in main and inject everywhere.
func New(opts Options) (*zap.Logger, error) {
	if opts.AppName == "" {
		opts.AppName = "webintel"
	}
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	stamp := time.Now().Format("20060102")

	fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleEncoder := zapcore.NewConsoleEncoder(consoleCfg)

	mainFile := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", opts.AppName, stamp)),
		MaxSize:    10, // MB
		MaxBackups: 5,
	})
	errorFile := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, fmt.Sprintf("%s_errors_%s.log", opts.AppName, stamp)),
		MaxSize:    5,
		MaxBackups: 3,
	})

	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder, mainFile, opts.Level),
		zapcore.NewCore(fileEncoder, errorFile, zapcore.ErrorLevel),
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), zapcore.InfoLevel),
	)

	logger := zap.New(core, zap.AddCaller())
	logger.Info("logging initialized",
		zap.String("dir", opts.Dir),
		zap.String("level", opts.Level.String()))
	return logger, nil
}
