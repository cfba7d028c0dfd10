// Package data holds the default content set: level files, the material
// manifest and rule scripts.
package data

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	LevelsDir    = "levels"
	ManifestPath = "manifest.yaml"
	RulesDir     = "rules"
)

//go:embed manifest.yaml levels/*.yaml rules/*.tengo
var Embedded embed.FS

// FS returns the content tree rooted at dir when dir holds a manifest, and
// the embedded copy otherwise. The whole tree is taken from one place so a
// batch never mixes disk edits with embedded files.
func FS(dir string) fs.FS {
	if dir != "" {
		if _, err := os.Stat(filepath.Join(dir, ManifestPath)); err == nil {
			return os.DirFS(dir)
		}
	}
	return Embedded
}

// OnDisk reports whether FS(dir) would read from disk.
func OnDisk(dir string) bool {
	_, ok := FS(dir).(embed.FS)
	return !ok
}
