package types

import "fmt"

// ExportVersion tags export documents. Import accepts only this version.
const ExportVersion = "1.0"

// Format selects the export serialization.
type Format string

// Export formats.
const (
	FormatJSON Format = "json"
	FormatSQL  Format = "sql"
)

// ParseFormat validates an export format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatSQL:
		return Format(s), nil
	default:
		return "", fmt.Errorf("export format %q: %w", s, ErrInvalidFormat)
	}
}

// ImportMode selects how an import reconciles with existing rows.
type ImportMode string

// Import modes.
const (
	// ImportMerge upserts every record by id and leaves other rows alone.
	ImportMerge ImportMode = "merge"
	// ImportReplace wipes every table, then inserts every record.
	ImportReplace ImportMode = "replace"
)

// ParseImportMode validates an import mode name.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(s) {
	case ImportMerge, ImportReplace:
		return ImportMode(s), nil
	default:
		return "", fmt.Errorf("import mode %q: %w", s, ErrInvalidData)
	}
}
