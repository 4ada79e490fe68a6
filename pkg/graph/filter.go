package graph

import (
	"fmt"
	"strings"
)

// Quote renders s as an OData string literal
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Eq builds "field eq 'value'"
func Eq(field, value string) string {
	return fmt.Sprintf("%s eq %s", field, Quote(value))
}

// StartsWith builds "startswith(field, 'prefix')"
func StartsWith(field, prefix string) string {
	return fmt.Sprintf("startswith(%s, %s)", field, Quote(prefix))
}
