package main

import (
	"fmt"
	"os"

	"github.com/kadirpekel/scout/pkg/logger"
)

// initLogger applies CLI flags over LOG_LEVEL/LOG_FILE/LOG_FORMAT
// environment variables. The returned cleanup closes the log file, if any.
func initLogger(levelStr, file, format string) (func(), error) {
	if env := os.Getenv("LOG_LEVEL"); levelStr == "" && env != "" {
		levelStr = env
	}
	if env := os.Getenv("LOG_FILE"); file == "" && env != "" {
		file = env
	}
	if env := os.Getenv("LOG_FORMAT"); format == "" && env != "" {
		format = env
	}
	if levelStr == "" {
		levelStr = "warn"
	}
	if format == "" {
		format = "simple"
	}

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output := os.Stderr
	var cleanup func()
	if file != "" {
		f, closeFn, err := logger.OpenLogFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = f
		cleanup = closeFn
	}

	logger.Init(level, output, format)
	return cleanup, nil
}
