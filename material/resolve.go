package material

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Resolved is the renderable parameter set of exactly one profile: the one
// the fallback walk ended on.
type Resolved struct {
	Requested Ref
	Source    Ref
	// Path runs from Requested to Source.
	Path []Ref

	AlbedoPath string
	NormalPath string
	Roughness  float64
	Metallic   float64
	UVScale    Vec2
	UVOffset   Vec2
}

// Fallback reports whether the material came from a profile other than the requested one.
func (r Resolved) Fallback() bool {
	return r.Source != r.Requested
}

func resolvedFrom(requested Ref, path []Ref, p Profile) Resolved {
	return Resolved{
		Requested:  requested,
		Source:     p.ID,
		Path:       path,
		AlbedoPath: p.AlbedoPath,
		NormalPath: p.NormalPath,
		Roughness:  p.Roughness,
		Metallic:   p.Metallic,
		UVScale:    p.UVScale,
		UVOffset:   p.UVOffset,
	}
}

// Resolver walks fallback chains against one manifest. It holds no mutable
// state, so one Resolver may serve any number of goroutines.
type Resolver struct {
	manifest *Manifest
}

func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

type frame struct {
	ref   Ref
	chain []Ref
	next  int
}

// Resolve returns the material for ref. A directly resolvable profile is
// returned as is; otherwise its fallback chain is walked depth first in
// declared order until a directly resolvable profile is reached.
//
// Chain entries missing from the manifest are skipped. An entry already on
// the current walk path is a cycle; the walk continues with the next
// alternative and, if nothing resolves, the first cycle found is reported.
func (r *Resolver) Resolve(ref Ref) (Resolved, error) {
	root, ok := r.manifest.Lookup(ref)
	if !ok {
		return Resolved{}, &ResolveError{Kind: ErrUnknownProfile, Ref: ref}
	}
	if root.Direct() {
		return resolvedFrom(ref, []Ref{ref}, root), nil
	}

	onPath := map[Ref]bool{ref: true}
	exhausted := map[Ref]bool{}
	stack := []frame{{ref: ref, chain: root.FallbackChain}}

	var (
		cycle   []Ref
		missing []Ref
	)
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.chain) {
			delete(onPath, top.ref)
			exhausted[top.ref] = true
			stack = stack[:len(stack)-1]
			continue
		}
		entry := top.chain[top.next]
		top.next++

		if onPath[entry] {
			if cycle == nil {
				cycle = append(stackPath(stack), entry)
			}
			continue
		}
		if exhausted[entry] {
			continue
		}
		p, ok := r.manifest.Lookup(entry)
		if !ok {
			missing = appendUnique(missing, entry)
			continue
		}
		if p.Direct() {
			return resolvedFrom(ref, append(stackPath(stack), entry), p), nil
		}
		onPath[entry] = true
		stack = append(stack, frame{ref: entry, chain: p.FallbackChain})
	}

	if cycle != nil {
		return Resolved{}, &ResolveError{Kind: ErrCyclicFallbackChain, Ref: ref, Path: cycle, Missing: missing}
	}
	return Resolved{}, &ResolveError{Kind: ErrUnresolvedProfile, Ref: ref, Missing: missing}
}

func stackPath(stack []frame) []Ref {
	path := make([]Ref, len(stack), len(stack)+1)
	for i, f := range stack {
		path[i] = f.ref
	}
	return path
}

func appendUnique(refs []Ref, ref Ref) []Ref {
	for _, r := range refs {
		if r == ref {
			return refs
		}
	}
	return append(refs, ref)
}

type resolvedFile struct {
	Requested  Ref     `yaml:"requested"`
	Source     Ref     `yaml:"source"`
	Path       []Ref   `yaml:"path,flow"`
	AlbedoPath string  `yaml:"albedo_path"`
	NormalPath string  `yaml:"normal_path,omitempty"`
	Roughness  float64 `yaml:"roughness"`
	Metallic   float64 `yaml:"metallic"`
	UVScale    Vec2    `yaml:"uv_scale"`
	UVOffset   Vec2    `yaml:"uv_offset"`
}

// EncodeResolved writes r as YAML, the form the preview tool copies to the
// clipboard.
func EncodeResolved(r Resolved) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	err := enc.Encode(resolvedFile{
		Requested:  r.Requested,
		Source:     r.Source,
		Path:       r.Path,
		AlbedoPath: r.AlbedoPath,
		NormalPath: r.NormalPath,
		Roughness:  r.Roughness,
		Metallic:   r.Metallic,
		UVScale:    r.UVScale,
		UVOffset:   r.UVOffset,
	})
	if err == nil {
		err = enc.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("material: marshal resolved %q: %w", r.Requested, err)
	}
	return buf.Bytes(), nil
}
