package levels

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownCellType = errors.New("unknown cell type")
	ErrInvalidNumber   = errors.New("invalid level number")
)

// Row is one line of a level matrix. It is written in flow style so a level
// file reads like the grid it describes.
type Row []CellType

func (r Row) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, c := range r {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!int",
			Value: fmt.Sprintf("%d", uint8(c)),
		})
	}
	return node, nil
}

// Definition is a single level: its grid and optional presentation metadata.
type Definition struct {
	Number       uint32        `yaml:"number"`
	Matrix       []Row         `yaml:"matrix"`
	Presentation *Presentation `yaml:"presentation,omitempty"`

	// Path is the file the level was read from, if any.
	Path string `yaml:"-"`
}

type Surface string

const (
	SurfaceGround     Surface = "ground"
	SurfaceBackground Surface = "background"
	SurfaceSidewall   Surface = "sidewall"
)

// Presentation describes which material profiles dress a level.
type Presentation struct {
	LevelNumber       uint32 `yaml:"level_number"`
	GroundProfile     string `yaml:"ground_profile,omitempty"`
	BackgroundProfile string `yaml:"background_profile,omitempty"`
	SidewallProfile   string `yaml:"sidewall_profile,omitempty"`
	Tint              *Tint  `yaml:"tint,omitempty"`
	Notes             string `yaml:"notes,omitempty"`
}

type SurfaceRef struct {
	Surface Surface
	Ref     string
}

// Profiles returns the declared profile references in ground, background,
// sidewall order. Undeclared surfaces are omitted.
func (p *Presentation) Profiles() []SurfaceRef {
	if p == nil {
		return nil
	}
	var out []SurfaceRef
	for _, s := range []SurfaceRef{
		{SurfaceGround, p.GroundProfile},
		{SurfaceBackground, p.BackgroundProfile},
		{SurfaceSidewall, p.SidewallProfile},
	} {
		if s.Ref != "" {
			out = append(out, s)
		}
	}
	return out
}

func (d *Definition) Rows() int {
	return len(d.Matrix)
}

// Cell returns the token at row/col and false when the position is not in the matrix.
func (d *Definition) Cell(row, col int) (CellType, bool) {
	if row < 0 || row >= len(d.Matrix) || col < 0 || col >= len(d.Matrix[row]) {
		return Empty, false
	}
	return d.Matrix[row][col], true
}

// Clone returns a deep copy so callers can edit a level without touching a
// published one.
func (d *Definition) Clone() *Definition {
	out := &Definition{Number: d.Number, Path: d.Path}
	out.Matrix = make([]Row, len(d.Matrix))
	for i, row := range d.Matrix {
		out.Matrix[i] = append(Row(nil), row...)
	}
	if d.Presentation != nil {
		p := *d.Presentation
		if d.Presentation.Tint != nil {
			t := *d.Presentation.Tint
			p.Tint = &t
		}
		out.Presentation = &p
	}
	return out
}

// Decode parses a level file. Shape is not checked here; that is the
// validator's job so that a whole batch reports consistently.
func Decode(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("levels: unmarshal: %w", err)
	}
	if def.Number == 0 {
		return nil, fmt.Errorf("levels: %w: number must be positive", ErrInvalidNumber)
	}
	for r, row := range def.Matrix {
		for c, cell := range row {
			if !cell.Valid() {
				return nil, fmt.Errorf("levels: level %d row %d col %d: %w: %d", def.Number, r, c, ErrUnknownCellType, uint8(cell))
			}
		}
	}
	return &def, nil
}

// Encode writes a level deterministically: fixed key order, two space
// indent, one flow sequence per matrix row.
func Encode(def *Definition) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(def); err != nil {
		return nil, fmt.Errorf("levels: marshal level %d: %w", def.Number, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("levels: marshal level %d: %w", def.Number, err)
	}
	return buf.Bytes(), nil
}

// FilePattern matches level files inside a levels directory.
const FilePattern = "level_*.yaml"

// FileName is the canonical file name for a level number.
func FileName(number uint32) string {
	return fmt.Sprintf("level_%03d.yaml", number)
}

// LoadFS reads every level file in dir, sorted by file name.
func LoadFS(fsys fs.FS, dir string) ([]*Definition, error) {
	names, err := fs.Glob(fsys, path.Join(dir, FilePattern))
	if err != nil {
		return nil, fmt.Errorf("levels: glob %s: %w", dir, err)
	}
	sort.Strings(names)

	defs := make([]*Definition, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("levels: read %s: %w", name, err)
		}
		def, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		def.Path = name
		defs = append(defs, def)
	}
	return defs, nil
}
