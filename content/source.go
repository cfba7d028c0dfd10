package content

import (
	"fmt"
	"io/fs"

	"github.com/milk9111/levelkit/levels"
	"github.com/milk9111/levelkit/material"
	"github.com/milk9111/levelkit/rules"
)

// Source locates one content set inside a file system.
type Source struct {
	FS           fs.FS
	LevelsDir    string
	ManifestPath string
	// RulesDir is optional; empty means the store keeps its current rules.
	RulesDir string
}

// Batch is everything read from a Source, not yet validated.
type Batch struct {
	Manifest *material.Manifest
	Levels   []*levels.Definition
	Rules    rules.Set
}

// Load reads and parses a Source. Parse errors fail the whole batch.
func Load(src Source) (*Batch, error) {
	if src.FS == nil {
		return nil, fmt.Errorf("content: load: no file system")
	}
	data, err := fs.ReadFile(src.FS, src.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("content: load: read manifest: %w", err)
	}
	m, err := material.DecodeManifest(data)
	if err != nil {
		return nil, fmt.Errorf("content: load %s: %w", src.ManifestPath, err)
	}

	defs, err := levels.LoadFS(src.FS, src.LevelsDir)
	if err != nil {
		return nil, fmt.Errorf("content: load: %w", err)
	}

	batch := &Batch{Manifest: m, Levels: defs}
	if src.RulesDir != "" {
		if batch.Rules, err = rules.LoadDir(src.FS, src.RulesDir); err != nil {
			return nil, fmt.Errorf("content: load: %w", err)
		}
	}
	return batch, nil
}
