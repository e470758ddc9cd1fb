// This file registers the SQL functions the store's queries rely on.
package sqlite

import (
	"database/sql/driver"
	"fmt"
	"strings"

	msqlite "modernc.org/sqlite"
)

// foldFunc lowercases text with full Unicode case mapping. SQLite's built-in
// lower() only folds ASCII, so search folds both sides through this instead.
const foldFunc = "fold"

func init() {
	if err := msqlite.RegisterDeterministicScalarFunction(foldFunc, 1, fold); err != nil {
		panic(fmt.Sprintf("registering %s: %v", foldFunc, err))
	}
}

func fold(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return foldText(v), nil
	case []byte:
		return foldText(string(v)), nil
	default:
		return v, nil
	}
}

// foldText is the Go side of fold(); queries compare fold(column) against
// patterns built with it.
func foldText(s string) string {
	return strings.ToLower(s)
}
