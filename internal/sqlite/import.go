// This file implements merge and replace import of JSON exports.
package sqlite

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

// importDoc is a validated export document: records per table, keyed by
// the codec's document key.
type importDoc struct {
	tables      map[string][]map[string]any
	hasSettings bool
}

// Import loads an export document. The whole document is validated before
// anything is written. The load runs in one transaction with foreign keys
// deferred, so rows may arrive in any order; references are checked once
// everything is loaded and a failed import leaves the store unchanged.
//
// ImportMerge upserts every record by primary key and leaves rows that are
// not in the document alone. ImportReplace empties every table first; the
// settings table is emptied only when the document carries settings.
//
// Media rows are rebased onto this store's media directory as <id><ext>.
// A media row whose file is not there is skipped along with its
// attachments.
func (s *Store) Import(blob []byte, mode types.ImportMode) error {
	if _, err := types.ParseImportMode(string(mode)); err != nil {
		return err
	}
	doc, err := decodeImport(blob)
	if err != nil {
		return err
	}
	if err := s.rebaseMedia(doc); err != nil {
		return err
	}

	counts := map[string]int{}
	err = s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("PRAGMA defer_foreign_keys = ON"); err != nil {
			return fmt.Errorf("deferring foreign keys: %w", err)
		}

		if mode == types.ImportReplace {
			entities := entityCodecs()
			for i := len(entities) - 1; i >= 0; i-- {
				if _, err := tx.Exec(entities[i].deleteSQL); err != nil {
					return fmt.Errorf("clearing %s: %w", entities[i].table, err)
				}
			}
			if doc.hasSettings {
				if _, err := tx.Exec(settingsCodec.deleteSQL); err != nil {
					return fmt.Errorf("clearing %s: %w", settingsCodec.table, err)
				}
			}
		}

		for _, c := range entityCodecs() {
			n, err := loadRecords(tx, c, doc.tables[c.docKey], mode)
			if err != nil {
				return err
			}
			counts[c.table] = n
		}
		if mode == types.ImportReplace && doc.hasSettings {
			n, err := loadRecords(tx, settingsCodec, doc.tables[settingsCodec.docKey], mode)
			if err != nil {
				return err
			}
			counts[settingsCodec.table] = n
		}
		return checkIntegrity(tx)
	})
	if err != nil {
		return fmt.Errorf("importing (%s): %w", mode, err)
	}

	ev := s.log.Debug().Str("mode", string(mode))
	for table, n := range counts {
		ev = ev.Int(table, n)
	}
	ev.Msg("imported")
	return nil
}

// ImportFromFile reads path and imports it. SQL exports cannot be imported.
func (s *Store) ImportFromFile(path string, mode types.ImportMode) error {
	if strings.EqualFold(filepath.Ext(path), ".sql") {
		return fmt.Errorf("importing %s: SQL import is not supported: %w", path, types.ErrInvalidFormat)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", types.ErrIO, path, err)
	}
	return s.Import(blob, mode)
}

// rebaseMedia points every media record at this store's media directory
// and drops records, and their attachments, whose file is missing there.
func (s *Store) rebaseMedia(doc importDoc) error {
	records := doc.tables["mediaFiles"]
	if len(records) == 0 {
		return nil
	}
	dir := s.config.MediaDir()
	kept := records[:0]
	skipped := map[string]bool{}
	for i, rec := range records {
		id, ok := rec["id"].(string)
		if !ok || id == "" {
			return fmt.Errorf("import mediaFiles[%d] has a non-string id: %w", i, types.ErrInvalidFormat)
		}
		path := filepath.Join(dir, id+mediaExt(rec))
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			s.log.Warn().Str("id", id).Str("path", path).Msg("skipping imported media without a file")
			skipped[id] = true
			continue
		}
		rec["path"] = path
		rec["thumbnail_path"] = rebaseThumbnail(dir, rec["thumbnail_path"])
		kept = append(kept, rec)
	}
	doc.tables["mediaFiles"] = kept
	if len(skipped) == 0 {
		return nil
	}

	attachments := doc.tables["mediaAttachments"]
	keptLinks := attachments[:0]
	for _, rec := range attachments {
		if id, _ := rec["media_id"].(string); skipped[id] {
			continue
		}
		keptLinks = append(keptLinks, rec)
	}
	doc.tables["mediaAttachments"] = keptLinks
	return nil
}

// mediaExt is the extension of the record's stored path, falling back to
// its filename's.
func mediaExt(rec map[string]any) string {
	for _, key := range []string{"path", "filename"} {
		if v, ok := rec[key].(string); ok {
			if ext := filepath.Ext(v); ext != "" {
				return ext
			}
		}
	}
	return ""
}

// rebaseThumbnail moves a thumbnail path into dir, or drops it when the
// file is not there.
func rebaseThumbnail(dir string, v any) any {
	name, ok := v.(string)
	if !ok || name == "" {
		return nil
	}
	path := filepath.Join(dir, filepath.Base(name))
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return path
}

// checkIntegrity fails when the loaded rows reference rows that do not
// exist. It runs before commit so the transaction can still roll back.
func checkIntegrity(tx *sql.Tx) error {
	var (
		table, parent string
		rowid         sql.NullInt64
		fkid          int
	)
	err := tx.QueryRow("PRAGMA foreign_key_check").Scan(&table, &rowid, &parent, &fkid)
	if err == nil {
		return violation("%s row %d references a missing %s row", table, rowid.Int64, parent)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking foreign keys: %w", err)
	}

	var orphan string
	err = tx.QueryRow(`SELECT id FROM checklist_instances
WHERE (attached_type = 'process' AND attached_to NOT IN (SELECT id FROM processes))
   OR (attached_type = 'note' AND attached_to NOT IN (SELECT id FROM notes))
LIMIT 1`).Scan(&orphan)
	if err == nil {
		return violation("checklist instance %s is attached to a missing target", orphan)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking checklist targets: %w", err)
	}

	err = tx.QueryRow(`SELECT media_id FROM media_attachments
WHERE (attached_type = 'process' AND attached_to NOT IN (SELECT id FROM processes))
   OR (attached_type = 'note' AND attached_to NOT IN (SELECT id FROM notes))
LIMIT 1`).Scan(&orphan)
	if err == nil {
		return violation("media %s is attached to a missing target", orphan)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking media targets: %w", err)
	}
	return nil
}

// decodeImport parses and validates blob without touching the store.
func decodeImport(blob []byte) (importDoc, error) {
	trimmed := bytes.TrimSpace(blob)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if bytes.HasPrefix(trimmed, []byte("--")) || bytes.HasPrefix(bytes.ToUpper(trimmed), []byte("INSERT")) {
			return importDoc{}, fmt.Errorf("SQL import is not supported: %w", types.ErrInvalidFormat)
		}
		return importDoc{}, fmt.Errorf("import is not a JSON object: %w", types.ErrInvalidFormat)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return importDoc{}, fmt.Errorf("parsing import: %w: %w", types.ErrInvalidFormat, err)
	}

	var version string
	if v, ok := raw["version"]; !ok || json.Unmarshal(v, &version) != nil || version != types.ExportVersion {
		return importDoc{}, fmt.Errorf("import version %q: %w", version, types.ErrInvalidFormat)
	}
	if v, ok := raw["processes"]; !ok || isNull(v) {
		return importDoc{}, fmt.Errorf("import has no processes: %w", types.ErrInvalidFormat)
	}

	doc := importDoc{tables: map[string][]map[string]any{}}
	for _, c := range codecs {
		v, ok := raw[c.docKey]
		if !ok || isNull(v) {
			continue
		}
		records, err := decodeRecords(c, v)
		if err != nil {
			return importDoc{}, err
		}
		doc.tables[c.docKey] = records
		if c.docKey == settingsCodec.docKey {
			doc.hasSettings = true
		}
	}
	return doc, nil
}

// decodeRecords checks that v is an array of objects carrying the codec's
// key columns. Numbers are decoded exactly.
func decodeRecords(c tableCodec, v json.RawMessage) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("import %s must be an array of objects: %w", c.docKey, types.ErrInvalidFormat)
	}
	for i, rec := range records {
		if rec == nil {
			return nil, fmt.Errorf("import %s[%d] is not an object: %w", c.docKey, i, types.ErrInvalidFormat)
		}
		for _, key := range c.keys {
			if val, ok := rec[key]; !ok || val == nil {
				return nil, fmt.Errorf("import %s[%d] has no %s: %w", c.docKey, i, key, types.ErrInvalidFormat)
			}
		}
	}
	return records, nil
}

// loadRecords writes records through the codec's insert (replace) or upsert
// (merge) statement. Columns missing from a record take the codec default
// or NULL; fields the codec does not know are ignored.
func loadRecords(tx *sql.Tx, c tableCodec, records []map[string]any, mode types.ImportMode) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	query := c.upsertSQL
	if mode == types.ImportReplace {
		query = c.insertSQL
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("preparing %s: %w", c.table, err)
	}
	defer stmt.Close()

	for i, rec := range records {
		args := make([]any, len(c.columns))
		for j, col := range c.columns {
			val, ok := rec[col]
			if !ok || val == nil {
				args[j] = c.defaults[col]
				continue
			}
			if args[j], err = columnValue(val); err != nil {
				return 0, fmt.Errorf("%s[%d].%s: %w", c.docKey, i, col, err)
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return 0, fmt.Errorf("loading %s[%d]: %w", c.docKey, i, err)
		}
	}
	return len(records), nil
}

// columnValue converts a decoded JSON value to a driver value. Nested
// objects and arrays are stored as their JSON text.
func columnValue(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s: %w", x, types.ErrInvalidFormat)
		}
		return f, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		return x, nil
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("encoding nested value: %w", types.ErrInvalidFormat)
		}
		return string(b), nil
	default:
		return nil, fmt.Errorf("unsupported value %T: %w", v, types.ErrInvalidFormat)
	}
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
