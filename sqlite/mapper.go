package sqlite

import (
	"strings"
)

// Data types reported for SQLite columns. They are the names the query
// compiler keys its literal rendering on.
const (
	DataTypeInteger   = "integer"
	DataTypeNumber    = "number"
	DataTypeBoolean   = "boolean"
	DataTypeString    = "string"
	DataTypeDate      = "date"
	DataTypeTimestamp = "timestamp"
	DataTypeBlob      = "blob"
)

// quoteIdentifier safely quotes an identifier, such as a table or column name.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// MapDataType maps a declared SQLite column type to a report data type.
// Date and boolean names are checked first; the rest follows SQLite's
// affinity rules, so "VARCHAR(20)" is a string and "BIGINT" an integer.
// Columns declared without a type are treated as strings.
func MapDataType(declared string) string {
	t := strings.ToUpper(strings.TrimSpace(declared))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}

	switch t {
	case "":
		return DataTypeString
	case "DATE":
		return DataTypeDate
	case "DATETIME", "TIMESTAMP":
		return DataTypeTimestamp
	case "BOOLEAN", "BOOL":
		return DataTypeBoolean
	}

	switch {
	case strings.Contains(t, "INT"):
		return DataTypeInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return DataTypeString
	case strings.Contains(t, "BLOB"):
		return DataTypeBlob
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return DataTypeNumber
	default:
		// NUMERIC affinity: DECIMAL, NUMERIC and anything unrecognised.
		return DataTypeNumber
	}
}
