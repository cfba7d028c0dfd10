package levels

import "github.com/milk9111/levelkit/grid"

// NormalizationMetrics counts the edits Normalize made.
type NormalizationMetrics struct {
	PaddedRows    int
	TruncatedRows int
	// PaddedCols and TruncatedCols are summed across all rows.
	PaddedCols    int
	TruncatedCols int
}

func (m NormalizationMetrics) Changed() bool {
	return m != NormalizationMetrics{}
}

// Normalize pads short rows/matrices with Empty and drops cells past the
// grid edge. The input is not modified. Only authoring tools should call
// this; loading never repairs a level silently.
func Normalize(matrix []Row, dims grid.Dimensions) ([]Row, NormalizationMetrics) {
	var m NormalizationMetrics

	rows := len(matrix)
	if rows > dims.Height {
		m.TruncatedRows = rows - dims.Height
		rows = dims.Height
	}

	out := make([]Row, dims.Height)
	for i := 0; i < rows; i++ {
		src := matrix[i]
		switch {
		case len(src) < dims.Width:
			m.PaddedCols += dims.Width - len(src)
		case len(src) > dims.Width:
			m.TruncatedCols += len(src) - dims.Width
		}
		row := make(Row, dims.Width)
		copy(row, src)
		out[i] = row
	}
	for i := rows; i < dims.Height; i++ {
		out[i] = make(Row, dims.Width)
		m.PaddedRows++
	}
	return out, m
}
