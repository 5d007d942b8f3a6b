// Package logging provides a shared slog backend that tees subsystem
// loggers to stdout and a size-rotated log file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// LogConfig configures the shared backend.
type LogConfig struct {
	// LogFile is the rotated log file path. Empty disables file output.
	LogFile string
	// DebugLevel is either a single level name or a comma-separated list
	// of subsystem=level pairs, e.g. "info" or "SRVR=debug,GAME=trace".
	DebugLevel string
	// MaxLogFiles caps the number of rotated files kept on disk.
	MaxLogFiles int
}

// LogBackend hands out tagged subsystem loggers backed by one writer.
type LogBackend struct {
	backend *slog.Backend
	rotator *rotator.Rotator

	defaultLevel slog.Level
	levels       map[string]slog.Level

	mu      sync.Mutex
	loggers map[string]slog.Logger
}

type teeWriter struct {
	rotator *rotator.Rotator
}

func (w *teeWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if w.rotator != nil {
		return w.rotator.Write(p)
	}
	return len(p), nil
}

// NewLogBackend creates the shared backend and parses the debug level spec.
func NewLogBackend(cfg LogConfig) (*LogBackend, error) {
	b := &LogBackend{
		defaultLevel: slog.LevelInfo,
		levels:       make(map[string]slog.Level),
		loggers:      make(map[string]slog.Logger),
	}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0700); err != nil {
			return nil, fmt.Errorf("failed to create log dir: %v", err)
		}
		maxFiles := cfg.MaxLogFiles
		if maxFiles == 0 {
			maxFiles = 3
		}
		r, err := rotator.New(cfg.LogFile, 32*1024, false, maxFiles)
		if err != nil {
			return nil, fmt.Errorf("failed to create log rotator: %v", err)
		}
		b.rotator = r
	}
	if err := b.parseLevels(cfg.DebugLevel); err != nil {
		return nil, err
	}
	b.backend = slog.NewBackend(&teeWriter{rotator: b.rotator})
	return b, nil
}

func (b *LogBackend) parseLevels(spec string) error {
	if spec == "" {
		return nil
	}
	for _, part := range strings.Split(spec, ",") {
		if !strings.Contains(part, "=") {
			lvl, ok := slog.LevelFromString(part)
			if !ok {
				return fmt.Errorf("invalid debug level %q", part)
			}
			b.defaultLevel = lvl
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		lvl, ok := slog.LevelFromString(kv[1])
		if !ok {
			return fmt.Errorf("invalid debug level %q for subsystem %s", kv[1], kv[0])
		}
		b.levels[strings.ToUpper(kv[0])] = lvl
	}
	return nil
}

// Logger returns the logger for a subsystem tag, creating it on first use.
func (b *LogBackend) Logger(tag string) slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.loggers[tag]; ok {
		return l
	}
	l := b.backend.Logger(tag)
	lvl := b.defaultLevel
	if sub, ok := b.levels[strings.ToUpper(tag)]; ok {
		lvl = sub
	}
	l.SetLevel(lvl)
	b.loggers[tag] = l
	return l
}

// Close flushes and closes the rotated log file.
func (b *LogBackend) Close() error {
	if b.rotator != nil {
		return b.rotator.Close()
	}
	return nil
}
