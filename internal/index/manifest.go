package index

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest records how an index was built.
type Manifest struct {
	Model      string    `yaml:"model"`
	Dimension  int       `yaml:"dimension"`
	Count      int       `yaml:"count"`
	Collection string    `yaml:"collection"`
	Compress   bool      `yaml:"compress"`
	BuiltAt    time.Time `yaml:"built_at"`
}

func readManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parsing manifest: %w", err)
	}
	return m, nil
}

func writeManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ManifestPath returns the manifest location inside an index directory.
// Watchers use it to detect a rebuilt index.
func ManifestPath(dir string) string {
	return filepath.Join(dir, manifestFile)
}
