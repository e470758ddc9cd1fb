// This file implements the app settings accessors.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

// GetSettings returns every setting with its value decoded from JSON. A
// value that is not valid JSON is returned as its raw string.
func (s *Store) GetSettings() (types.Settings, error) {
	var out types.Settings
	err := s.withRead(func(q querier) error {
		var err error
		out, err = readSettings(q)
		return err
	})
	return out, err
}

// UpdateSettings upserts each key of changes in one transaction and returns
// the full settings afterwards. Keys not in changes are kept.
func (s *Store) UpdateSettings(changes types.Settings) (types.Settings, error) {
	var out types.Settings
	err := s.withTx(func(tx *sql.Tx) error {
		for key, value := range changes {
			if key == "" {
				return fmt.Errorf("empty setting key: %w", types.ErrInvalidData)
			}
			b, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("encoding setting %s: %w", key, types.ErrInvalidData)
			}
			if _, err := tx.Exec(`INSERT INTO app_settings (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, string(b)); err != nil {
				return fmt.Errorf("writing setting %s: %w", key, err)
			}
		}
		var err error
		out, err = readSettings(tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("updating settings: %w", err)
	}
	return out, nil
}

func readSettings(q querier) (types.Settings, error) {
	rows, err := q.Query("SELECT key, value FROM app_settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	defer rows.Close()

	out := types.Settings{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[key] = v
	}
	return out, rows.Err()
}
