// Package utils holds small helpers shared by the SDK and the demo harness.
package utils

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// SetLogging initializes the global logger.
//
//	levelName is one of error, warn, info, debug. Default is info.
//	logFile is the optional log output file. Use "" for stderr.
func SetLogging(levelName string, logFile string) {
	logLevel := slog.LevelInfo
	switch levelName {
	case "error":
		logLevel = slog.LevelError
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "debug":
		logLevel = slog.LevelDebug
	}

	if logFile != "" {
		outFile, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err == nil {
			handler := slog.NewTextHandler(outFile, &slog.HandlerOptions{Level: logLevel})
			slog.SetDefault(slog.New(handler))
			return
		}
		slog.Error("SetLogging: can't open logfile, using stderr",
			"logFile", logFile, "err", err.Error())
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.TimeOnly,
	})
	slog.SetDefault(slog.New(handler))
}
