// This file implements first-run seeding of default settings.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

// seedDefaultSettings writes types.DefaultSettings when app_settings is
// empty. EnsureSchema runs it on every Open, so a table emptied by a replace
// import with an empty settings list is reseeded on the next Open. A
// non-empty table is left alone.
func seedDefaultSettings(tx *sql.Tx) error {
	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM app_settings").Scan(&count); err != nil {
		return fmt.Errorf("counting settings: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, d := range types.DefaultSettings {
		if _, err := tx.Exec(
			"INSERT INTO app_settings (key, value) VALUES (?, ?)", d.Key, d.Value,
		); err != nil {
			return fmt.Errorf("seeding setting %s: %w", d.Key, err)
		}
	}
	return nil
}
