// Package manifest handles moontinker.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "moontinker.toml"

// Manifest represents a moontinker.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Source  Source  `toml:"source"`
	Storage Storage `toml:"storage"`

	// Dir is the directory containing the manifest (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Board string `toml:"board"`
}

// Source configures where generated script files live.
type Source struct {
	Dir   string `toml:"dir"`
	Entry string `toml:"entry"`
}

// Storage configures the sketch database.
type Storage struct {
	Path string `toml:"path"`
}

// Load parses a moontinker.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a moontinker.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Save writes the manifest back to its directory.
func (m *Manifest) Save() error {
	path := filepath.Join(m.Dir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func (m *Manifest) applyDefaults() {
	if m.Project.Board == "" {
		m.Project.Board = "tinkerboard-v1"
	}
	if m.Source.Dir == "" {
		m.Source.Dir = "src"
	}
	if m.Source.Entry == "" {
		m.Source.Entry = "main.mtk"
	}
	if m.Storage.Path == "" {
		m.Storage.Path = filepath.Join(".moontinker", "sketches.db")
	}
}

// EntryPath returns the absolute path of the entry script.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.Dir, m.Source.Dir, m.Source.Entry)
}

// StoragePath returns the absolute path of the sketch database.
func (m *Manifest) StoragePath() string {
	if filepath.IsAbs(m.Storage.Path) {
		return m.Storage.Path
	}
	return filepath.Join(m.Dir, m.Storage.Path)
}
