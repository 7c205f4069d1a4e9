package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"pathwatch/internal/core/config"
)

// setupLogging installs the default slog logger. In UI mode logs go to a
// file so they do not corrupt the terminal view.
func setupLogging(cfg config.Log, ui bool) (func(), error) {
	var (
		output  io.Writer = os.Stderr
		closeFn           = func() {}
	)

	if ui {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			} else {
				output = f
				closeFn = func() { _ = f.Close() }
			}
		}
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		closeFn()
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	slog.SetDefault(slog.New(handler))
	return closeFn, nil
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pathwatch", "pathwatch.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "pathwatch", "pathwatch.log")
	}

	return "pathwatch.log"
}
