package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hazae41/glace/internal/logfields"
	"github.com/hazae41/glace/internal/retry"
)

// Staging builds into a sibling of the output directory and swaps it in
// only once the build succeeded, so a failed build never leaves a partial
// tree at the output path.
type Staging struct {
	output string
	dir    string
	active bool
}

// NewStaging prepares staging for output. The staging path is fixed
// (<output>_stage) so bundler contexts targeting it stay valid across builds.
func NewStaging(output string) *Staging {
	output = filepath.Clean(output)
	return &Staging{output: output, dir: output + "_stage"}
}

// Dir returns the staging directory.
func (s *Staging) Dir() string { return s.dir }

// Output returns the final output directory.
func (s *Staging) Output() string { return s.output }

// Begin wipes and recreates the staging directory.
func (s *Staging) Begin() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("clear staging: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create staging: %w", err)
	}
	s.active = true
	slog.Debug("Initialized staging directory", "staging", s.dir, logfields.Output(s.output))
	return nil
}

// Promote replaces the output directory with the staging directory. The
// previous output is moved aside first and removed afterwards.
func (s *Staging) Promote() error {
	if !s.active {
		return fmt.Errorf("no staging directory initialized")
	}
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("staging directory missing: %w", err)
	}
	prev := s.output + ".prev"
	if err := removeWithRetry(prev); err != nil {
		slog.Warn("Failed to remove previous backup", logfields.Path(prev), logfields.Error(err))
	}
	if _, err := os.Stat(s.output); err == nil {
		if err := os.Rename(s.output, prev); err != nil {
			return fmt.Errorf("backup existing output: %w", err)
		}
	}
	if err := os.Rename(s.dir, s.output); err != nil {
		// Put the previous output back so the failed promote is invisible.
		_ = os.Rename(prev, s.output)
		return fmt.Errorf("promote staging: %w", err)
	}
	s.active = false
	if err := os.RemoveAll(prev); err != nil {
		slog.Warn("Failed to remove previous backup", logfields.Path(prev), logfields.Error(err))
	}
	slog.Info("Promoted staging directory", logfields.Output(s.output))
	return nil
}

// Abort discards the staging directory. The output directory is untouched.
func (s *Staging) Abort() {
	if !s.active {
		return
	}
	s.active = false
	if err := os.RemoveAll(s.dir); err != nil {
		slog.Warn("Failed to remove staging directory after abort", "staging", s.dir, logfields.Error(err))
		return
	}
	slog.Debug("Removed staging directory after abort", "staging", s.dir)
}

func removeWithRetry(p string) error {
	return retry.DefaultPolicy().Do(context.Background(), func() error { return os.RemoveAll(p) })
}
