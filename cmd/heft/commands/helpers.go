package commands

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"github.com/heftdb/heft/catalog"
	"github.com/heftdb/heft/cmd/heft/internal/config"
)

var snapshotPath string

// loadCatalog reads the catalog snapshot named by the --snapshot flag or the
// configuration and builds a catalog from it.
func loadCatalog() (*catalog.Catalog, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	path := snapshotPath
	if path == "" {
		path = cfg.SnapshotPath
	}

	data, err := afero.ReadFile(config.AppFs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog snapshot %s: %w", path, err)
	}
	return catalog.LoadSnapshot(data)
}

// parseJSONMap decodes a JSON object argument; empty input means an empty map.
func parseJSONMap(raw, flag string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("invalid JSON for --%s: %w", flag, err)
	}
	return m, nil
}
