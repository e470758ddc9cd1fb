// Package cli implements the processflow command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/processflow/internal/logging"
	"github.com/mesh-intelligence/processflow/internal/paths"
	"github.com/mesh-intelligence/processflow/pkg/sqlite"
	"github.com/mesh-intelligence/processflow/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
	jsonLogs  bool
}

// session is the per-invocation state built before any subcommand runs.
type session struct {
	flags     rootFlags
	configDir string
	config    runtimeConfig
	log       *logging.Log
}

// NewRootCmd creates the top-level "processflow" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	s := &session{}
	root := &cobra.Command{
		Use:     "processflow",
		Short:   "Local store for process diagrams, notes and checklists",
		Long:    "processflow keeps workflow diagrams, linked notes, checklists and media\nin a local SQLite store and serves them over a loopback IPC bridge.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return s.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if s.log == nil {
				return nil
			}
			return s.log.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&s.flags.configDir, "config-dir", "", "configuration directory (default: per-user config dir)")
	pf.StringVar(&s.flags.dataDir, "data-dir", "", "data directory (default: per-user data dir)")
	pf.StringVar(&s.flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.BoolVar(&s.flags.jsonLogs, "json-logs", false, "write logs as JSON")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(s))
	root.AddCommand(newServeCmd(s))
	root.AddCommand(newCallCmd(s))
	root.AddCommand(newExportCmd(s))
	root.AddCommand(newImportCmd(s))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitError carries a specific exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func sysError(format string, a ...any) error {
	return &exitError{code: exitSysError, err: fmt.Errorf(format, a...)}
}

func exitCode(err error) int {
	if e, ok := err.(*exitError); ok {
		return e.code
	}
	return exitUserError
}

// setup resolves directories, loads config.yaml and builds the logger.
func (s *session) setup(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(s.flags.configDir)
	if err != nil {
		return sysError("resolve config directory: %w", err)
	}
	s.configDir = configDir

	s.config, err = loadConfig(configDir)
	if err != nil {
		return sysError("load config: %w", err)
	}

	format := s.config.LogFormat
	if s.flags.jsonLogs {
		format = logging.FormatJSON
	}
	level := s.config.LogLevel
	if s.flags.logLevel != "" {
		level = s.flags.logLevel
	}
	s.log, err = logging.New(logging.Options{
		Level:  level,
		Format: format,
		File:   s.config.LogFile,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	return nil
}

// storeConfig resolves the data directory and returns the store config.
func (s *session) storeConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(s.flags.dataDir, s.config.DataDir)
	if err != nil {
		return types.Config{}, sysError("resolve data directory: %w", err)
	}
	return types.Config{DataDir: dataDir, MediaDirName: s.config.MediaDirName}, nil
}

// openStore opens the store. The caller must Close it.
func (s *session) openStore() (*sqlite.Store, error) {
	cfg, err := s.storeConfig()
	if err != nil {
		return nil, err
	}
	store, err := sqlite.Open(cfg, s.log.Logger)
	if err != nil {
		return nil, sysError("open store: %w", err)
	}
	return store, nil
}
