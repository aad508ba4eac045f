package catalog

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Snapshot is the boundary value produced by schema introspection. The
// introspection mechanism itself lives outside this module; its JSON output
// is decoded here into an immutable Catalog.
type Snapshot struct {
	Relations []Relation `json:"relations"`
}

// LoadSnapshot decodes an introspection snapshot and builds a catalog.
func LoadSnapshot(data []byte) (*Catalog, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode catalog snapshot: %w", err)
	}
	return New(snap.Relations)
}
