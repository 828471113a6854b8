package io

import (
	"fmt"

	"github.com/phil-mansfield/table"
)

// ReadPositions reads particle positions from a whitespace-separated text
// file. colIdxs gives the column of each coordinate; the returned slice is
// indexed as positions[particle][axis] and particle IDs are line order.
func ReadPositions(file string, colIdxs []int) ([][]float64, error) {
	if len(colIdxs) == 0 {
		return nil, fmt.Errorf("no coordinate columns given for '%s'", file)
	}

	cols, err := table.ReadTable(file, colIdxs, nil)
	if err != nil {
		return nil, fmt.Errorf("reading '%s': %w", file, err)
	}

	n := len(cols[0])
	flat := make([]float64, n*len(cols))
	positions := make([][]float64, n)
	for i := range positions {
		positions[i] = flat[i*len(cols) : (i+1)*len(cols)]
		for axis := range cols {
			positions[i][axis] = cols[axis][i]
		}
	}
	return positions, nil
}
