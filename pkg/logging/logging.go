// Package logging builds the portal's zap loggers.
//
// Application logs go to stdout and, when log_file is set, to a rotating file
// managed by lumberjack. The HTTP access log is a separate writer so it can
// be shipped on its own.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cmformation/formation-portal/pkg/config"
)

// Rotation defaults for file sinks
const (
	maxSizeMB  = 50
	maxBackups = 5
	maxAgeDays = 30
)

// level is shared by every logger built by New so a config reload can change it
var level = zap.NewAtomicLevel()

// New builds a logger from the portal configuration.
func New(cfg *config.PortalConfig) (*zap.Logger, error) {
	if err := SetLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.LogJSON {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	if cfg.LogFile != "" {
		sinks = append(sinks, zapcore.AddSync(rotatingFile(cfg.LogFile)))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core, zap.AddCaller()), nil
}

// SetLevel changes the minimum level of loggers built by New.
func SetLevel(name string) error {
	l, err := zapcore.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	level.SetLevel(l)
	return nil
}

// AccessLogWriter returns the destination of the HTTP combined access log.
func AccessLogWriter(cfg *config.PortalConfig) io.Writer {
	if cfg.AccessLogFile == "" {
		return os.Stdout
	}
	return rotatingFile(cfg.AccessLogFile)
}

func rotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
}
