package grid

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
)

// Layout binds a grid to a plane in world space. Origin is the world
// position of the top-left grid corner.
type Layout struct {
	Dims   Dimensions
	PlaneW float64
	PlaneH float64
	CellW  float64
	CellH  float64
	Origin cp.Vector
}

func NewLayout(dims Dimensions, planeW, planeH float64) (Layout, error) {
	cw, ch, err := CellSize(dims, planeW, planeH)
	if err != nil {
		return Layout{}, err
	}
	return Layout{
		Dims:   dims,
		PlaneW: planeW,
		PlaneH: planeH,
		CellW:  cw,
		CellH:  ch,
	}, nil
}

// Centered returns a copy of l whose plane is centered on the world origin.
func (l Layout) Centered() Layout {
	l.Origin = cp.Vector{X: -l.PlaneW / 2, Y: -l.PlaneH / 2}
	return l
}

// Lines returns the overlay line coordinates shifted by the layout origin.
func (l Layout) Lines() ([]float64, []float64, error) {
	xs, ys, err := LinePositions(l.Dims, l.CellW, l.CellH)
	if err != nil {
		return nil, nil, err
	}
	for i := range xs {
		xs[i] += l.Origin.X
	}
	for i := range ys {
		ys[i] += l.Origin.Y
	}
	return xs, ys, nil
}

func (l Layout) CellCenter(row, col int) (cp.Vector, error) {
	c, err := CellCenter(l.Dims, row, col, l.CellW, l.CellH)
	if err != nil {
		return cp.Vector{}, err
	}
	return c.Add(l.Origin), nil
}

// CellAt maps a world position back to the cell containing it. Points on an
// interior line belong to the cell below/right of it.
func (l Layout) CellAt(p cp.Vector) (int, int, error) {
	local := p.Sub(l.Origin)
	if local.X < 0 || local.Y < 0 || local.X >= l.PlaneW || local.Y >= l.PlaneH {
		return 0, 0, fmt.Errorf("grid: cell at: %w: point (%g, %g)", ErrIndexOutOfBounds, p.X, p.Y)
	}
	col := int(math.Floor(local.X / l.CellW))
	row := int(math.Floor(local.Y / l.CellH))
	// float division can land exactly on Width/Height for points just inside the far edge
	col = min(col, l.Dims.Width-1)
	row = min(row, l.Dims.Height-1)
	return row, col, nil
}
