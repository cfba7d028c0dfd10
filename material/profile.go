package material

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Ref names a profile in the manifest, e.g. "ground/cobble_01".
type Ref string

// Category is the part of the reference before the first slash.
func (r Ref) Category() string {
	s := string(r)
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return s[:i]
	}
	return s
}

// Vec2 is written as a two element flow sequence.
type Vec2 [2]float64

func (v Vec2) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, f := range v {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: strconv.FormatFloat(f, 'g', -1, 64),
		})
	}
	return node, nil
}

const (
	DefaultRoughness = 0.5
	DefaultMetallic  = 0.0
)

var DefaultUVScale = Vec2{1, 1}

// Profile is one manifest entry.
type Profile struct {
	ID            Ref
	AlbedoPath    string
	NormalPath    string
	Roughness     float64
	Metallic      float64
	UVScale       Vec2
	UVOffset      Vec2
	FallbackChain []Ref
}

// Direct reports whether the profile carries its own texture and needs no fallback.
func (p Profile) Direct() bool {
	return p.AlbedoPath != ""
}

func (p Profile) clone() Profile {
	p.FallbackChain = append([]Ref(nil), p.FallbackChain...)
	return p
}

func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func (p Profile) validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: empty profile id", ErrInvalidReference)
	}
	for i, ref := range p.FallbackChain {
		if strings.TrimSpace(string(ref)) == "" {
			return fmt.Errorf("%w: profile %q fallback_chain[%d] is empty", ErrInvalidReference, p.ID, i)
		}
	}
	if !unit(p.Roughness) {
		return fmt.Errorf("%w: profile %q roughness %g not in [0, 1]", ErrInvalidProfile, p.ID, p.Roughness)
	}
	if !unit(p.Metallic) {
		return fmt.Errorf("%w: profile %q metallic %g not in [0, 1]", ErrInvalidProfile, p.ID, p.Metallic)
	}
	if !(p.UVScale[0] > 0) || !(p.UVScale[1] > 0) {
		return fmt.Errorf("%w: profile %q uv_scale %v must be positive", ErrInvalidProfile, p.ID, p.UVScale)
	}
	return nil
}

// profileFile is the on-disk shape. Pointers mark fields that get a default
// when omitted.
type profileFile struct {
	ID            Ref      `yaml:"id"`
	AlbedoPath    string   `yaml:"albedo_path"`
	NormalPath    string   `yaml:"normal_path,omitempty"`
	Roughness     *float64 `yaml:"roughness"`
	Metallic      *float64 `yaml:"metallic"`
	UVScale       *Vec2    `yaml:"uv_scale"`
	UVOffset      *Vec2    `yaml:"uv_offset"`
	FallbackChain []Ref    `yaml:"fallback_chain"`
}

func (f profileFile) profile() Profile {
	p := Profile{
		ID:            f.ID,
		AlbedoPath:    f.AlbedoPath,
		NormalPath:    f.NormalPath,
		Roughness:     DefaultRoughness,
		Metallic:      DefaultMetallic,
		UVScale:       DefaultUVScale,
		FallbackChain: f.FallbackChain,
	}
	if f.Roughness != nil {
		p.Roughness = *f.Roughness
	}
	if f.Metallic != nil {
		p.Metallic = *f.Metallic
	}
	if f.UVScale != nil {
		p.UVScale = *f.UVScale
	}
	if f.UVOffset != nil {
		p.UVOffset = *f.UVOffset
	}
	return p
}

func fileFromProfile(p Profile) profileFile {
	chain := p.FallbackChain
	if chain == nil {
		chain = []Ref{}
	}
	return profileFile{
		ID:            p.ID,
		AlbedoPath:    p.AlbedoPath,
		NormalPath:    p.NormalPath,
		Roughness:     &p.Roughness,
		Metallic:      &p.Metallic,
		UVScale:       &p.UVScale,
		UVOffset:      &p.UVOffset,
		FallbackChain: chain,
	}
}
