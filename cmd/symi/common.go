package main

import (
	"fmt"
	"os"

	"github.com/symi-lang/symi/config"
	"github.com/symi-lang/symi/session"
)

// buildFile runs a file through the pipeline via a fresh, single-use
// session.Store; the CLI never keeps a file open across invocations,
// so one FileUpdate per command is enough to populate the cache.
func buildFile(path string) (*session.Store, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	store := session.New()
	store.FileUpdate(path, data)
	return store, path, nil
}

func loadExportConfig() config.ExportConfig {
	return config.LoadOrDefault(configPath).Export
}
