// This file implements JSON and SQL export of the whole store.
package sqlite

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

// exportDateLayout matches JavaScript's Date.toISOString.
const exportDateLayout = "2006-01-02T15:04:05.000Z"

// tableRows is one table's contents, each row keyed by column name.
type tableRows struct {
	codec tableCodec
	rows  []map[string]any
}

// Export serializes every table. FormatJSON produces a versioned document
// with one array per table; FormatSQL produces INSERT statements, parents
// first.
func (s *Store) Export(format types.Format) ([]byte, error) {
	if _, err := types.ParseFormat(string(format)); err != nil {
		return nil, err
	}

	var tables []tableRows
	err := s.withRead(func(q querier) error {
		for _, c := range codecs {
			rows, err := readTable(q, c)
			if err != nil {
				return err
			}
			tables = append(tables, tableRows{codec: c, rows: rows})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("exporting: %w", err)
	}

	stamp := time.UnixMilli(types.NowMillis()).UTC().Format(exportDateLayout)
	if format == types.FormatSQL {
		return encodeSQL(tables, stamp), nil
	}
	return encodeJSON(tables, stamp)
}

// ExportToFile writes Export(format) to path atomically.
func (s *Store) ExportToFile(format types.Format, path string) error {
	data, err := s.Export(format)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: exporting to %s: %w", types.ErrIO, path, err)
	}
	s.log.Debug().Str("path", path).Str("format", string(format)).Int("bytes", len(data)).Msg("exported")
	return nil
}

func readTable(q querier, c tableCodec) ([]map[string]any, error) {
	rows, err := q.Query(c.selectSQL)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.table, err)
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(c.columns))
		ptrs := make([]any, len(c.columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", c.table, err)
		}
		row := make(map[string]any, len(c.columns))
		for i, col := range c.columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// encodeJSON writes the document with keys in table order, then indents it.
func encodeJSON(tables []tableRows, stamp string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"version":`)
	buf.WriteString(strconv.Quote(types.ExportVersion))
	buf.WriteString(`,"exportDate":`)
	buf.WriteString(strconv.Quote(stamp))
	for _, t := range tables {
		b, err := json.Marshal(t.rows)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", t.codec.table, err)
		}
		buf.WriteString(`,"`)
		buf.WriteString(t.codec.docKey)
		buf.WriteString(`":`)
		buf.Write(b)
	}
	buf.WriteString("}")

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indenting export: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func encodeSQL(tables []tableRows, stamp string) []byte {
	var b strings.Builder
	b.WriteString("-- ProcessFlow Database Export\n")
	b.WriteString("-- Generated on " + stamp + "\n\n")
	for _, t := range tables {
		b.WriteString("-- Table: " + t.codec.table + "\n")
		cols := strings.Join(t.codec.columns, ", ")
		for _, row := range t.rows {
			values := make([]string, len(t.codec.columns))
			for i, col := range t.codec.columns {
				values[i] = sqlLiteral(row[col])
			}
			fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s);\n", t.codec.table, cols, strings.Join(values, ", "))
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// sqlLiteral renders a scanned column value as a SQLite literal.
func sqlLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case []byte:
		return "X'" + hex.EncodeToString(x) + "'"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case time.Time:
		return "'" + x.UTC().Format(time.RFC3339Nano) + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(x), "'", "''") + "'"
	}
}
