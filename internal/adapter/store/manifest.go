package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const manifestVersion = 1

// Manifest describes one committed index generation: which vector and
// metadata files form the pair, and the model they were built with.
// Readers must only reach the pair through a manifest referenced by the
// CURRENT file, never by guessing file names.
type Manifest struct {
	Version      int       `json:"version"`
	Generation   uint64    `json:"generation"`
	BuildID      string    `json:"build_id"`
	Model        string    `json:"model"`
	Dimension    int       `json:"dimension"`
	Count        int       `json:"count"`
	CreatedAt    time.Time `json:"created_at"`
	VectorsFile  string    `json:"vectors_file"`
	MetadataFile string    `json:"metadata_file"`
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("store: parse manifest: %w", err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("store: unsupported manifest version %d", m.Version)
	}
	return &m, nil
}
