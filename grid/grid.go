package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
)

var (
	ErrInvalidDimensions = errors.New("invalid dimensions")
	ErrIndexOutOfBounds  = errors.New("index out of bounds")
)

// DefaultDimensions is the size every shipped level is authored at.
var DefaultDimensions = Dimensions{Width: 20, Height: 20}

// Dimensions is the cell count of a level grid.
type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Contains reports whether row/col address a cell inside the grid.
func (d Dimensions) Contains(row, col int) bool {
	return row >= 0 && row < d.Height && col >= 0 && col < d.Width
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// CellSize splits a plane of planeW x planeH world units into equally sized cells.
func CellSize(dims Dimensions, planeW, planeH float64) (float64, float64, error) {
	if !dims.Valid() {
		return 0, 0, fmt.Errorf("grid: cell size: %w: grid %s", ErrInvalidDimensions, dims)
	}
	if !positive(planeW) || !positive(planeH) {
		return 0, 0, fmt.Errorf("grid: cell size: %w: plane %gx%g", ErrInvalidDimensions, planeW, planeH)
	}
	return planeW / float64(dims.Width), planeH / float64(dims.Height), nil
}

// LinePositions returns the x of every vertical grid line and the y of every
// horizontal one. N cells are bounded by N+1 lines, so xs has Width+1 entries
// and ys has Height+1 entries, both starting at 0.
func LinePositions(dims Dimensions, cellW, cellH float64) ([]float64, []float64, error) {
	if !dims.Valid() {
		return nil, nil, fmt.Errorf("grid: line positions: %w: grid %s", ErrInvalidDimensions, dims)
	}
	if !positive(cellW) || !positive(cellH) {
		return nil, nil, fmt.Errorf("grid: line positions: %w: cell %gx%g", ErrInvalidDimensions, cellW, cellH)
	}

	xs := make([]float64, dims.Width+1)
	for i := range xs {
		xs[i] = float64(i) * cellW
	}
	ys := make([]float64, dims.Height+1)
	for i := range ys {
		ys[i] = float64(i) * cellH
	}
	return xs, ys, nil
}

// CellCenter returns the world position of the middle of cell (row, col).
func CellCenter(dims Dimensions, row, col int, cellW, cellH float64) (cp.Vector, error) {
	if !dims.Contains(row, col) {
		return cp.Vector{}, fmt.Errorf("grid: cell center: %w: row=%d col=%d grid %s", ErrIndexOutOfBounds, row, col, dims)
	}
	return cp.Vector{
		X: (float64(col) + 0.5) * cellW,
		Y: (float64(row) + 0.5) * cellH,
	}, nil
}
