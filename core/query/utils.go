package query

import (
	"strconv"
	"strings"
)

// StringPtr returns a pointer to s. Handy for the optional data source
// arguments of RemoveTable and IsTableSelected.
func StringPtr(s string) *string {
	return &s
}

// dataTypeClass groups column data types by how their literals are rendered.
type dataTypeClass int

const (
	classRaw dataTypeClass = iota
	classText
	classTemporal
)

// normalizeDataType lowercases a data type and strips any "(n)" size suffix,
// so "VARCHAR(255)" and "varchar" behave the same.
func normalizeDataType(dataType string) string {
	dt := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexByte(dt, '('); i >= 0 {
		dt = strings.TrimSpace(dt[:i])
	}
	return dt
}

func classify(dataType string) dataTypeClass {
	switch normalizeDataType(dataType) {
	case "string", "varchar", "text":
		return classText
	case "date", "timestamp":
		return classTemporal
	default:
		return classRaw
	}
}

// quoteLiteral wraps v in single quotes, doubling any embedded quote.
func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// renderLiteral renders the right-hand side of a filter predicate.
func renderLiteral(op Operator, dataType, value string) string {
	switch classify(dataType) {
	case classText:
		if op.IsLike() {
			return quoteLiteral("%" + value + "%")
		}
		return quoteLiteral(value)
	case classTemporal:
		return quoteLiteral(value)
	default:
		return value
	}
}

// bindValue converts a filter value into a driver argument. Values of raw
// data types that parse as numbers or booleans are passed as such; everything
// else stays a string.
func bindValue(op Operator, dataType, value string) any {
	switch classify(dataType) {
	case classText:
		if op.IsLike() {
			return "%" + value + "%"
		}
		return value
	case classTemporal:
		return value
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}
