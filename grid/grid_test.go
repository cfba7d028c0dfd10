package grid

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellSize(t *testing.T) {
	cases := []struct {
		name   string
		dims   Dimensions
		planeW float64
		planeH float64
		wantW  float64
		wantH  float64
		err    error
	}{
		{"default_square", DefaultDimensions, 100, 100, 5, 5, nil},
		{"rect", Dimensions{Width: 4, Height: 2}, 10, 3, 2.5, 1.5, nil},
		{"zero_width", Dimensions{Width: 0, Height: 2}, 10, 10, 0, 0, ErrInvalidDimensions},
		{"negative_height", Dimensions{Width: 2, Height: -1}, 10, 10, 0, 0, ErrInvalidDimensions},
		{"zero_plane", DefaultDimensions, 0, 10, 0, 0, ErrInvalidDimensions},
		{"negative_plane", DefaultDimensions, 10, -5, 0, 0, ErrInvalidDimensions},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w, h, err := CellSize(c.dims, c.planeW, c.planeH)
			if c.err != nil {
				require.ErrorIs(t, err, c.err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, c.wantW, w, 1e-9)
			assert.InDelta(t, c.wantH, h, 1e-9)
		})
	}
}

func TestLinePositionsFencePosts(t *testing.T) {
	cases := []struct {
		name   string
		dims   Dimensions
		planeW float64
		planeH float64
	}{
		{"default", DefaultDimensions, 100, 100},
		{"single_cell", Dimensions{Width: 1, Height: 1}, 3, 7},
		{"wide", Dimensions{Width: 17, Height: 3}, 34.5, 9},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cw, ch, err := CellSize(c.dims, c.planeW, c.planeH)
			require.NoError(t, err)

			xs, ys, err := LinePositions(c.dims, cw, ch)
			require.NoError(t, err)
			require.Len(t, xs, c.dims.Width+1)
			require.Len(t, ys, c.dims.Height+1)

			assert.Equal(t, 0.0, xs[0])
			assert.Equal(t, 0.0, ys[0])
			assert.InDelta(t, c.planeW, xs[len(xs)-1], 1e-9)
			assert.InDelta(t, c.planeH, ys[len(ys)-1], 1e-9)
			for i := 1; i < len(xs); i++ {
				assert.Greater(t, xs[i], xs[i-1])
			}
			for i := 1; i < len(ys); i++ {
				assert.Greater(t, ys[i], ys[i-1])
			}
		})
	}
}

func TestLinePositionsDefaultPlane(t *testing.T) {
	cw, ch, err := CellSize(DefaultDimensions, 100, 100)
	require.NoError(t, err)
	xs, ys, err := LinePositions(DefaultDimensions, cw, ch)
	require.NoError(t, err)

	require.Len(t, xs, 21)
	require.Len(t, ys, 21)
	for i := range xs {
		assert.InDelta(t, float64(i)*5, xs[i], 1e-9)
		assert.InDelta(t, float64(i)*5, ys[i], 1e-9)
	}
}

func TestLinePositionsRejectsBadInput(t *testing.T) {
	_, _, err := LinePositions(Dimensions{}, 1, 1)
	require.ErrorIs(t, err, ErrInvalidDimensions)

	_, _, err = LinePositions(DefaultDimensions, 0, 1)
	require.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestCellCenter(t *testing.T) {
	dims := DefaultDimensions

	c, err := CellCenter(dims, 0, 0, 5, 4)
	require.NoError(t, err)
	assert.Equal(t, cp.Vector{X: 2.5, Y: 2}, c)

	last, err := CellCenter(dims, dims.Height-1, dims.Width-1, 5, 4)
	require.NoError(t, err)
	assert.InDelta(t, 97.5, last.X, 1e-9)
	assert.InDelta(t, 78, last.Y, 1e-9)

	for _, rc := range [][2]int{{-1, 0}, {0, -1}, {dims.Height, 0}, {0, dims.Width}} {
		_, err := CellCenter(dims, rc[0], rc[1], 5, 4)
		require.ErrorIs(t, err, ErrIndexOutOfBounds, "row=%d col=%d", rc[0], rc[1])
	}
}

func TestLayoutCentered(t *testing.T) {
	l, err := NewLayout(DefaultDimensions, 100, 100)
	require.NoError(t, err)
	l = l.Centered()

	xs, ys, err := l.Lines()
	require.NoError(t, err)
	assert.InDelta(t, -50, xs[0], 1e-9)
	assert.InDelta(t, 50, xs[len(xs)-1], 1e-9)
	assert.InDelta(t, -50, ys[0], 1e-9)

	c, err := l.CellCenter(0, 0)
	require.NoError(t, err)
	assert.Equal(t, cp.Vector{X: -47.5, Y: -47.5}, c)

	row, col, err := l.CellAt(c)
	require.NoError(t, err)
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, col)

	row, col, err = l.CellAt(cp.Vector{X: 49.999, Y: -0.001})
	require.NoError(t, err)
	assert.Equal(t, 9, row)
	assert.Equal(t, 19, col)

	_, _, err = l.CellAt(cp.Vector{X: 50, Y: 0})
	require.ErrorIs(t, err, ErrIndexOutOfBounds)
}

func TestLayoutRoundTripsEveryCell(t *testing.T) {
	dims := Dimensions{Width: 7, Height: 5}
	l, err := NewLayout(dims, 21, 10)
	require.NoError(t, err)

	for row := 0; row < dims.Height; row++ {
		for col := 0; col < dims.Width; col++ {
			c, err := l.CellCenter(row, col)
			require.NoError(t, err)
			gotRow, gotCol, err := l.CellAt(c)
			require.NoError(t, err)
			assert.Equal(t, row, gotRow)
			assert.Equal(t, col, gotCol)
		}
	}
}
