package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest is the plugin's manifest.json.
type Manifest struct {
	Name            string   `json:"name"`
	Icon            string   `json:"icon"`
	Version         string   `json:"version"`
	Description     string   `json:"description"`
	Author          string   `json:"author"`
	Website         string   `json:"website"`
	Entry           string   `json:"entry"`
	APILevel        uint32   `json:"api_level"`
	Permissions     []string `json:"permissions"`
	AdditionalFiles []string `json:"additional_files,omitempty"`
}

// LoadManifest reads and validates a plugin directory's manifest.
func LoadManifest(dir string) (*Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest has no name")
	}
	if m.Entry == "" {
		return nil, fmt.Errorf("manifest %q has no entry script", m.Name)
	}
	return &m, nil
}

// HasPermission reports whether the manifest declares perm.
func (m *Manifest) HasPermission(perm string) bool {
	for _, p := range m.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
