// Package authoring holds the batch edits the content tools make to level
// files and the manifest. Every function works on copies and returns the
// edited content; writing it back is the caller's business.
package authoring

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"path"
	"sort"
	"strings"

	"github.com/milk9111/levelkit/levels"
	"github.com/milk9111/levelkit/material"
)

var ErrNotEnoughTextures = errors.New("not enough textures")

type Mode string

const (
	// ModeAll reassigns every level.
	ModeAll Mode = "all"
	// ModeMissing only assigns levels that declare no ground profile.
	ModeMissing Mode = "missing"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAll, ModeMissing:
		return Mode(s), nil
	}
	return "", fmt.Errorf("authoring: unknown mode %q (want all or missing)", s)
}

// Parameters given to profiles created for newly assigned textures.
const (
	AssignedRoughness = 0.9
	AssignedNote      = "Assigned by contentctl"
)

var (
	AssignedUVScale  = material.Vec2{4, 3}
	AssignedFallback = material.Ref("ground/default")
)

type AssignOptions struct {
	Mode Mode
	Seed uint64
	// Textures are file names; each becomes the profile "ground/<stem>".
	Textures []string
	// AlbedoDir prefixes the texture file name in new profiles.
	AlbedoDir string
}

type Assignment struct {
	Level   uint32
	Profile material.Ref
}

type AssignResult struct {
	Levels   []*levels.Definition
	Manifest *material.Manifest
	Assigned []Assignment
	// Added lists profiles created because a level referenced a texture
	// the manifest did not have.
	Added []material.Ref
}

// TextureProfile is the ground profile id for a texture file.
func TextureProfile(file string) material.Ref {
	base := path.Base(file)
	return material.Ref("ground/" + strings.TrimSuffix(base, path.Ext(base)))
}

// AssignGround gives each selected level a distinct ground texture, chosen
// by a shuffle seeded with opts.Seed, and adds a manifest profile for every
// ground reference the levels use that the manifest lacks.
func AssignGround(m *material.Manifest, defs []*levels.Definition, opts AssignOptions) (*AssignResult, error) {
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}

	out := &AssignResult{Levels: make([]*levels.Definition, len(defs)), Manifest: m}
	var targets []*levels.Definition
	for i, def := range defs {
		out.Levels[i] = def.Clone()
		if opts.Mode == ModeAll || def.Presentation == nil || def.Presentation.GroundProfile == "" {
			targets = append(targets, out.Levels[i])
		}
	}
	if len(targets) == 0 {
		return out, nil
	}

	textures := append([]string(nil), opts.Textures...)
	sort.Strings(textures)
	if len(textures) < len(targets) {
		return nil, fmt.Errorf("authoring: assign: %w: %d textures for %d levels", ErrNotEnoughTextures, len(textures), len(targets))
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(textures), func(i, j int) { textures[i], textures[j] = textures[j], textures[i] })

	albedo := map[material.Ref]string{}
	for i, def := range targets {
		ref := TextureProfile(textures[i])
		albedo[ref] = path.Join(opts.AlbedoDir, path.Base(textures[i]))
		if def.Presentation == nil {
			def.Presentation = &levels.Presentation{}
		}
		def.Presentation.LevelNumber = def.Number
		def.Presentation.GroundProfile = string(ref)
		def.Presentation.Notes = AssignedNote
		out.Assigned = append(out.Assigned, Assignment{Level: def.Number, Profile: ref})
	}

	used := map[material.Ref]bool{}
	for _, def := range out.Levels {
		if def.Presentation != nil && def.Presentation.GroundProfile != "" {
			used[material.Ref(def.Presentation.GroundProfile)] = true
		}
	}
	var missing []material.Ref
	for ref := range used {
		if _, ok := m.Lookup(ref); !ok {
			missing = append(missing, ref)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

	for _, ref := range missing {
		tex, ok := albedo[ref]
		if !ok {
			// Referenced by a level we did not touch; guess the file name.
			tex = path.Join(opts.AlbedoDir, strings.TrimPrefix(string(ref), "ground/")+".png")
		}
		next, err := out.Manifest.With(material.Profile{
			ID:            ref,
			AlbedoPath:    tex,
			Roughness:     AssignedRoughness,
			UVScale:       AssignedUVScale,
			FallbackChain: []material.Ref{AssignedFallback},
		})
		if err != nil {
			return nil, fmt.Errorf("authoring: assign: %w", err)
		}
		out.Manifest = next
		out.Added = append(out.Added, ref)
	}
	return out, nil
}
