// Package content validates a batch of levels against a material manifest and
// publishes accepted batches as immutable snapshots.
package content

import (
	"errors"
	"fmt"

	"github.com/milk9111/levelkit/grid"
	"github.com/milk9111/levelkit/levels"
	"github.com/milk9111/levelkit/material"
	"github.com/milk9111/levelkit/rules"
)

var (
	ErrDimensionMismatch         = errors.New("dimension mismatch")
	ErrDuplicateLevelNumber      = errors.New("duplicate level number")
	ErrPresentationLevelMismatch = errors.New("presentation level mismatch")
	ErrNoDefaultProfile          = errors.New("no default profile")
	ErrNoSnapshot                = errors.New("no published snapshot")
)

// DefaultCategories are the surface categories every manifest must be able to
// texture without a level asking for anything specific.
var DefaultCategories = []string{
	string(levels.SurfaceGround),
	string(levels.SurfaceBackground),
	string(levels.SurfaceSidewall),
}

// LevelError ties a violation to the level, and optionally the surface,
// that caused it.
type LevelError struct {
	Level   uint32
	Surface levels.Surface
	Err     error
}

func (e *LevelError) Error() string {
	if e.Surface != "" {
		return fmt.Sprintf("level %d: %s: %v", e.Level, e.Surface, e.Err)
	}
	return fmt.Sprintf("level %d: %v", e.Level, e.Err)
}

func (e *LevelError) Unwrap() error {
	return e.Err
}

// Report summarizes one validation pass.
type Report struct {
	Levels     int
	Profiles   int
	Violations []error
}

func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// Err returns every violation joined, or nil.
func (r *Report) Err() error {
	return errors.Join(r.Violations...)
}

// Validator checks a batch before it is published. The zero value checks a
// 20x20 grid with no required categories and no rules.
type Validator struct {
	Dims               grid.Dimensions
	RequiredCategories []string
	// ReportAll keeps checking after the first violation.
	ReportAll bool
	Rules     rules.Set
}

func (v *Validator) dims() grid.Dimensions {
	if v.Dims.Valid() {
		return v.Dims
	}
	return grid.DefaultDimensions
}

// errStop ends a fail-fast pass early.
var errStop = errors.New("stop")

// Validate runs every check in a fixed order: matrix shape, unique numbers,
// presentation numbers, profile resolution, required categories, rules.
// The returned error is nil exactly when the report has no violations.
func (v *Validator) Validate(m *material.Manifest, defs []*levels.Definition) (*Report, error) {
	report := &Report{Levels: len(defs), Profiles: m.Len()}
	add := func(err error) error {
		report.Violations = append(report.Violations, err)
		if v.ReportAll {
			return nil
		}
		return errStop
	}

	checks := []func(*material.Manifest, []*levels.Definition, func(error) error) error{
		v.checkShape,
		checkNumbers,
		checkPresentation,
		checkProfiles,
		v.checkCategories,
		v.checkRules,
	}
	for _, check := range checks {
		if err := check(m, defs, add); err != nil {
			break
		}
	}
	return report, report.Err()
}

func (v *Validator) checkShape(_ *material.Manifest, defs []*levels.Definition, add func(error) error) error {
	dims := v.dims()
	for _, def := range defs {
		if len(def.Matrix) != dims.Height {
			err := fmt.Errorf("%w: %d rows, want %d", ErrDimensionMismatch, len(def.Matrix), dims.Height)
			if stop := add(&LevelError{Level: def.Number, Err: err}); stop != nil {
				return stop
			}
			continue
		}
		for r, row := range def.Matrix {
			if len(row) != dims.Width {
				err := fmt.Errorf("%w: row %d has %d cells, want %d", ErrDimensionMismatch, r, len(row), dims.Width)
				if stop := add(&LevelError{Level: def.Number, Err: err}); stop != nil {
					return stop
				}
				break
			}
		}
	}
	return nil
}

func checkNumbers(_ *material.Manifest, defs []*levels.Definition, add func(error) error) error {
	seen := make(map[uint32]*levels.Definition, len(defs))
	for _, def := range defs {
		first, ok := seen[def.Number]
		if !ok {
			seen[def.Number] = def
			continue
		}
		err := ErrDuplicateLevelNumber
		if first.Path != "" {
			err = fmt.Errorf("%w: also defined in %s", ErrDuplicateLevelNumber, first.Path)
		}
		if stop := add(&LevelError{Level: def.Number, Err: err}); stop != nil {
			return stop
		}
	}
	return nil
}

func checkPresentation(_ *material.Manifest, defs []*levels.Definition, add func(error) error) error {
	for _, def := range defs {
		p := def.Presentation
		if p == nil || p.LevelNumber == def.Number {
			continue
		}
		err := fmt.Errorf("%w: presentation names level %d", ErrPresentationLevelMismatch, p.LevelNumber)
		if stop := add(&LevelError{Level: def.Number, Err: err}); stop != nil {
			return stop
		}
	}
	return nil
}

func checkProfiles(m *material.Manifest, defs []*levels.Definition, add func(error) error) error {
	resolver := material.NewResolver(m)
	for _, def := range defs {
		for _, sr := range def.Presentation.Profiles() {
			if _, err := resolver.Resolve(material.Ref(sr.Ref)); err != nil {
				if stop := add(&LevelError{Level: def.Number, Surface: sr.Surface, Err: err}); stop != nil {
					return stop
				}
			}
		}
	}
	return nil
}

func (v *Validator) checkCategories(m *material.Manifest, _ []*levels.Definition, add func(error) error) error {
	for _, c := range v.RequiredCategories {
		if m.HasDirect(c) {
			continue
		}
		if stop := add(fmt.Errorf("%w: category %q", ErrNoDefaultProfile, c)); stop != nil {
			return stop
		}
	}
	return nil
}

func (v *Validator) checkRules(_ *material.Manifest, defs []*levels.Definition, add func(error) error) error {
	if len(v.Rules) == 0 {
		return nil
	}
	for _, def := range defs {
		for _, err := range flatten(v.Rules.Check(def)) {
			if stop := add(err); stop != nil {
				return stop
			}
		}
	}
	return nil
}

func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
