package ops

import (
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// FormatArray renders elements as a Postgres array literal, e.g. {a,b,c}.
// Elements containing any of , { } " \ or whitespace are double-quoted with
// backslash escaping; empty strings and null-like strings are always quoted
// so they survive the round trip, while a nil element is the unquoted NULL.
func FormatArray(elems []any) (string, error) {
	parts := make([]string, len(elems))
	for i, e := range elems {
		s, err := formatArrayElem(e)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

var arrayElemEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func formatArrayElem(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		if needsArrayQuoting(x) {
			return `"` + arrayElemEscaper.Replace(x) + `"`, nil
		}
		return x, nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(x), nil
	case time.Time:
		return `"` + x.Format(time.RFC3339Nano) + `"`, nil
	case map[string]any, []any:
		// Nested structures (jsonb[] elements) serialize to JSON text.
		b, err := json.Marshal(x)
		if err != nil {
			return "", fmt.Errorf("cannot serialize array element: %w", err)
		}
		return `"` + arrayElemEscaper.Replace(string(b)) + `"`, nil
	default:
		return fmt.Sprint(x), nil
	}
}

func needsArrayQuoting(s string) bool {
	if s == "" {
		return true
	}
	if strings.EqualFold(s, "null") {
		return true
	}
	return strings.ContainsAny(s, ",{}\"\\ \t\n")
}
