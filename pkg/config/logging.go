package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/GKaszewski/k-core/pkg/logger"
)

// LoggerOptions turns the [log] section into logger options. debug forces
// debug level on top of the file setting.
func (l LogConfig) LoggerOptions(debug bool) []logger.Option {
	return []logger.Option{
		logger.WithDebug(debug || l.Debug),
		logger.WithJSON(l.JSON),
		logger.WithPretty(l.Pretty),
	}
}

// OpenLog is LoggerOptions plus, when File is set, a JSON logger appending
// to that file. The returned closer releases the file and is never nil.
func (l LogConfig) OpenLog(debug bool) ([]logger.Option, io.Closer, error) {
	opts := l.LoggerOptions(debug)
	if l.File == "" {
		return opts, io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(l.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(l.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithWriter(f),
		logger.WithJSON(true),
		logger.WithDebug(debug || l.Debug),
	)
	return append(opts, logger.WithTee(file)), f, nil
}
