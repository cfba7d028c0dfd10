package authoring

import (
	"github.com/milk9111/levelkit/grid"
	"github.com/milk9111/levelkit/levels"
)

type FixResult struct {
	Level   *levels.Definition
	Metrics levels.NormalizationMetrics
	// PresentationFixed is set when the presentation level number was
	// rewritten to match the level.
	PresentationFixed bool
}

func (r FixResult) Changed() bool {
	return r.Metrics.Changed() || r.PresentationFixed
}

// Fix normalizes every level to dims and aligns presentation level numbers.
// The input levels are not modified.
func Fix(defs []*levels.Definition, dims grid.Dimensions) []FixResult {
	out := make([]FixResult, len(defs))
	for i, def := range defs {
		fixed := def.Clone()
		matrix, metrics := levels.Normalize(fixed.Matrix, dims)
		fixed.Matrix = matrix
		res := FixResult{Level: fixed, Metrics: metrics}
		if p := fixed.Presentation; p != nil && p.LevelNumber != fixed.Number {
			p.LevelNumber = fixed.Number
			res.PresentationFixed = true
		}
		out[i] = res
	}
	return out
}
