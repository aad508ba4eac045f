package predicate

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/heftdb/heft/catalog"
	"github.com/heftdb/heft/query/compose"
)

// numericKey matches integer-shaped strings a caller might pass as a bare
// primary-key value.
var numericKey = regexp.MustCompile(`^\d+$`)

// CompileAny compiles any criteria value. A map compiles normally; a bare
// value that looks like a primary key (a number, a numeric-looking string,
// or a UUID-shaped string) compiles to a single-column primary-key equality.
// This sniffing is deliberately narrow: natural string keys are never
// sniffed, callers with such keys must pass an explicit criteria map.
func CompileAny(source compose.Source, criteria any, opts Options) (*Compiled, error) {
	m, err := Criteria(source, criteria)
	if err != nil {
		return nil, err
	}
	return Compile(source, m, opts)
}

// Criteria normalizes any criteria value to a criteria map: maps pass
// through, nil means no filter, and a bare primary-key value becomes a
// single-column equality.
func Criteria(source compose.Source, criteria any) (map[string]any, error) {
	if criteria == nil {
		return nil, nil
	}
	if m, ok := criteria.(map[string]any); ok {
		return m, nil
	}

	if !LooksLikeKey(criteria) {
		return nil, &CompileError{Message: fmt.Sprintf("criteria value %v is neither a map nor a primary-key value", criteria)}
	}

	pk, err := primaryKey(source)
	if err != nil {
		return nil, err
	}
	if len(pk) != 1 {
		return nil, &CompileError{Message: fmt.Sprintf("%s needs a single-column primary key for bare key lookup", source.Ident())}
	}
	return map[string]any{pk[0]: criteria}, nil
}

// LooksLikeKey reports whether a bare criteria value is treated as a
// primary-key value.
func LooksLikeKey(v any) bool {
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case string:
		if numericKey.MatchString(x) {
			return true
		}
		_, err := uuid.Parse(x)
		return err == nil
	default:
		return false
	}
}

func primaryKey(source compose.Source) ([]string, error) {
	switch src := source.(type) {
	case *catalog.Relation:
		return src.PrimaryKey, nil
	case *compose.CompoundRelation:
		return src.Origin.PrimaryKey, nil
	default:
		return nil, &CompileError{Message: fmt.Sprintf("cannot determine primary key of %T", source)}
	}
}
