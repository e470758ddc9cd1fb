// Package sqlite exposes the ProcessFlow store to callers outside this
// module while keeping its implementation internal.
package sqlite

import (
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/processflow/internal/sqlite"
	"github.com/mesh-intelligence/processflow/pkg/types"
)

// Store is an open ProcessFlow store.
type Store = sqlite.Store

// Open opens (creating if needed) the store described by config. log
// receives store diagnostics; pass zerolog.Nop() to discard them.
//
// Example:
//
//	store, err := sqlite.Open(types.Config{DataDir: dir}, zerolog.Nop())
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(config types.Config, log zerolog.Logger) (*Store, error) {
	return sqlite.Open(config, sqlite.WithLogger(log))
}
