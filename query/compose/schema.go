package compose

import (
	"fmt"
	"strings"
)

// DecomposeMode selects the shape a child node nests into.
type DecomposeMode int

const (
	// DecomposeArray nests children as an ordered list (the default).
	DecomposeArray DecomposeMode = iota
	// DecomposeObject nests a single child object.
	DecomposeObject
	// DecomposeDictionary nests children as a map keyed by primary key.
	DecomposeDictionary
)

func (m DecomposeMode) String() string {
	switch m {
	case DecomposeObject:
		return "object"
	case DecomposeDictionary:
		return "dictionary"
	default:
		return "array"
	}
}

func parseDecomposeMode(s string) (DecomposeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "array":
		return DecomposeArray, nil
	case "object":
		return DecomposeObject, nil
	case "dictionary", "map":
		return DecomposeDictionary, nil
	default:
		return DecomposeArray, fmt.Errorf("unknown decomposeTo value %q", s)
	}
}

// DecompositionSchema mirrors a join tree: which result-set aliases carry a
// node's primary key, how aliases map back to column names, and how each
// child nests. Built once per compound relation and reused by every query
// against it.
type DecompositionSchema struct {
	PKAliases []string
	Columns   map[string]string // result-set alias -> column name
	Mode      DecomposeMode
	Children  map[string]*DecompositionSchema // keyed by node alias
}
