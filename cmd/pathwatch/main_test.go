package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pathwatch/internal/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "pathwatch devel\n", out.String())
}

func TestLoadConfig_FallsBackToDefaultsWhenImplicit(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"."}, cfg.WatchPaths)

	_, err = loadConfig(filepath.Join(t.TempDir(), "absent.toml"), true)
	assert.Error(t, err)
}

func TestLoadConfig_AppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pathwatch.toml")
	require.NoError(t, os.WriteFile(path, []byte("watch_paths = [\"/notes\"]\n"), 0o644))
	t.Setenv("PATHWATCH_WATCH_EXECUTOR", "loop")

	cfg, err := loadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, config.ExecutorLoop, cfg.Watch.Executor)
	assert.Equal(t, []string{"/notes"}, cfg.WatchPaths)

	t.Setenv("PATHWATCH_LOG_LEVEL", "loud")
	_, err = loadConfig(path, true)
	assert.ErrorContains(t, err, "log.level")
}

func TestJournalCommand_PrintsEmptyJournal(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs([]string{"journal", "--config", filepath.Join(t.TempDir(), "none.toml"), "--path", filepath.Join(t.TempDir(), "j.db")})
	// An explicit --config that does not exist is an error.
	assert.Error(t, root.Execute())

	out.Reset()
	root = newRootCmd(&out)
	root.SetArgs([]string{"journal", "--path", filepath.Join(t.TempDir(), "j.db")})
	require.NoError(t, root.Execute())
	assert.Equal(t, "no journaled events\n", out.String())
}

func TestWatchCommand_RejectsBadFlags(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs([]string{"watch", t.TempDir(), "--executor", "threads"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch.executor")

	root = newRootCmd(&out)
	root.SetArgs([]string{"watch", t.TempDir(), "--kinds", "created,touched"})
	err = root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch.kinds")
}

func TestWatchCommand_RunsUntilCancelled(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs([]string{"watch", dir, "--latency", "10ms"})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch command did not stop")
	}
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"debug", "info", "warn", "error"} {
		level, err := parseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, name, strings.ToLower(level.String()))
	}
	_, err := parseLevel("verbose")
	assert.Error(t, err)
}

func TestResolveLogPath_UsesXDGStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	assert.Equal(t, filepath.Join("/tmp/state", "pathwatch", "pathwatch.log"), resolveLogPath())
}
