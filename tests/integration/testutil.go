// Package integration runs the processflow binary end to end.
package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

var (
	// processflowBin is the path to the built processflow binary.
	processflowBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot walks up from the working directory to the go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// TestEnv is an isolated config and data directory.
type TestEnv struct {
	t         *testing.T
	ConfigDir string
	DataDir   string
}

// NewTestEnv creates a TestEnv whose config.yaml points at its data dir.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if buildErr != nil {
		t.Fatalf("failed to build processflow: %v", buildErr)
	}
	if processflowBin == "" {
		t.Fatal("processflow binary not built")
	}

	dir := t.TempDir()
	env := &TestEnv{
		t:         t,
		ConfigDir: filepath.Join(dir, "config"),
		DataDir:   filepath.Join(dir, "data"),
	}
	if err := os.MkdirAll(env.ConfigDir, 0o755); err != nil {
		t.Fatalf("create config dir: %v", err)
	}
	config := "data_dir: " + env.DataDir + "\nlog_level: warn\n"
	if err := os.WriteFile(filepath.Join(env.ConfigDir, "config.yaml"), []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

// CmdResult holds the outcome of one processflow invocation.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes processflow with the env's config dir. The data dir comes
// from config.yaml.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()
	cmd := exec.Command(processflowBin, append([]string{"--config-dir", e.ConfigDir}, args...)...)
	cmd.Env = append(os.Environ(), "PROCESSFLOW_DATA_DIR=", "PROCESSFLOW_CONFIG_DIR=")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			e.t.Fatalf("run processflow: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}
	return CmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
}

// MustRun executes processflow and fails the test on a non-zero exit.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	res := e.Run(args...)
	if res.ExitCode != 0 {
		e.t.Fatalf("processflow %v exited %d:\nstdout: %s\nstderr: %s", args, res.ExitCode, res.Stdout, res.Stderr)
	}
	return res
}

// Envelope mirrors the IPC result printed by "processflow call".
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// Call runs one channel and decodes its envelope.
func Call[T any](t *testing.T, e *TestEnv, channel, payload string) Envelope[T] {
	t.Helper()
	res := e.Run("call", channel, payload)
	var env Envelope[T]
	if err := json.Unmarshal([]byte(res.Stdout), &env); err != nil {
		t.Fatalf("parse envelope %q: %v", res.Stdout, err)
	}
	return env
}
