package material

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Manifest is the registry of material profiles shared by all levels. It is
// filled during load and read-only afterwards.
type Manifest struct {
	profiles map[Ref]Profile
	order    []Ref
}

func NewManifest(profiles ...Profile) (*Manifest, error) {
	m := &Manifest{profiles: make(map[Ref]Profile, len(profiles))}
	for _, p := range profiles {
		if err := m.Insert(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Insert adds a profile. Fallback targets are not required to exist yet.
func (m *Manifest) Insert(p Profile) error {
	if err := p.validate(); err != nil {
		return fmt.Errorf("material: insert: %w", err)
	}
	if _, ok := m.profiles[p.ID]; ok {
		return fmt.Errorf("material: insert: %w: %q", ErrDuplicateProfileID, p.ID)
	}
	if m.profiles == nil {
		m.profiles = make(map[Ref]Profile)
	}
	m.profiles[p.ID] = p.clone()
	m.order = append(m.order, p.ID)
	return nil
}

func (m *Manifest) Lookup(ref Ref) (Profile, bool) {
	if m == nil {
		return Profile{}, false
	}
	p, ok := m.profiles[ref]
	if !ok {
		return Profile{}, false
	}
	return p.clone(), true
}

func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// IDs returns every profile id in sorted order.
func (m *Manifest) IDs() []Ref {
	if m == nil {
		return nil
	}
	ids := append([]Ref(nil), m.order...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Manifest) Profiles() []Profile {
	ids := m.IDs()
	out := make([]Profile, len(ids))
	for i, id := range ids {
		out[i] = m.profiles[id].clone()
	}
	return out
}

func (m *Manifest) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range m.IDs() {
		c := id.Category()
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// HasDirect reports whether some profile of the category is directly resolvable.
func (m *Manifest) HasDirect(category string) bool {
	if m == nil {
		return false
	}
	for id, p := range m.profiles {
		if id.Category() == category && p.Direct() {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of m. Inserting into either one does not
// affect the other.
func (m *Manifest) Clone() *Manifest {
	return m.grow(0)
}

func (m *Manifest) grow(extra int) *Manifest {
	out := &Manifest{
		profiles: make(map[Ref]Profile, m.Len()+extra),
		order:    make([]Ref, 0, m.Len()+extra),
	}
	if m != nil {
		for _, id := range m.order {
			out.profiles[id] = m.profiles[id].clone()
		}
		out.order = append(out.order, m.order...)
	}
	return out
}

// With returns a copy of m with p added, or replacing the profile with the
// same id. m itself is not changed.
func (m *Manifest) With(p Profile) (*Manifest, error) {
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("material: with: %w", err)
	}
	out := m.grow(1)
	if _, ok := out.profiles[p.ID]; !ok {
		out.order = append(out.order, p.ID)
	}
	out.profiles[p.ID] = p.clone()
	return out, nil
}

type manifestFile struct {
	Profiles []profileFile `yaml:"profiles"`
}

// DecodeManifest parses a manifest file. Omitted roughness, metallic and uv
// fields take the package defaults.
func DecodeManifest(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raw manifestFile
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("material: unmarshal manifest: %w", err)
	}

	m := &Manifest{profiles: make(map[Ref]Profile, len(raw.Profiles))}
	for i, f := range raw.Profiles {
		if err := m.Insert(f.profile()); err != nil {
			return nil, fmt.Errorf("material: profiles[%d]: %w", i, err)
		}
	}
	return m, nil
}

// Encode writes the manifest with profiles sorted by id.
func (m *Manifest) Encode() ([]byte, error) {
	var raw manifestFile
	raw.Profiles = []profileFile{}
	for _, p := range m.Profiles() {
		raw.Profiles = append(raw.Profiles, fileFromProfile(p))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return nil, fmt.Errorf("material: marshal manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("material: marshal manifest: %w", err)
	}
	return buf.Bytes(), nil
}
