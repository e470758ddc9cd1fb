// Package types defines the entity types, patch types, filters and standard
// errors for the ProcessFlow store.
//
// Entities are plain structs carrying millisecond timestamps. Partial writes
// use per-entity patch structs whose fields are Optional, so a patch can tell
// "leave unchanged" (field absent) apart from "clear this field" (field
// present with a nil value).
package types
