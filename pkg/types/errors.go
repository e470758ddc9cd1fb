package types

import "errors"

// Store lifecycle errors.
var (
	// ErrStorageInit is returned when the store cannot be opened or its
	// schema cannot be created. It is fatal to startup.
	ErrStorageInit = errors.New("storage initialization failed")
	ErrStoreClosed = errors.New("store is closed")
)

// Operation errors. Callers compare with errors.Is; returned errors wrap
// these sentinels with the entity and id involved.
var (
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrInvalidFormat       = errors.New("invalid format")
	ErrIO                  = errors.New("i/o failure")
	ErrInvalidID           = errors.New("invalid entity ID")
	ErrInvalidData         = errors.New("invalid entity data")
)
