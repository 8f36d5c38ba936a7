package query

import (
	"strconv"
	"strings"
	"unicode"
)

// AllocateAlias derives a SQL-safe alias for tableName that is not in
// existing. The name is lowercased and every character outside [a-z0-9] is
// replaced with an underscore; on collision "_1", "_2", ... is appended until
// the alias is free.
func AllocateAlias(tableName string, existing map[string]struct{}) string {
	base := normalizeAlias(tableName)
	alias := base
	for counter := 1; ; counter++ {
		if _, taken := existing[alias]; !taken {
			return alias
		}
		alias = base + "_" + strconv.Itoa(counter)
	}
}

func normalizeAlias(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// FormatColumnAlias turns a column name into its default display alias:
// split on underscores, each word capitalized, joined with spaces.
// "customer_id" becomes "Customer Id".
func FormatColumnAlias(columnName string) string {
	words := strings.Split(columnName, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
