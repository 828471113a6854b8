/*package occupancy bins sequences of particle positions onto a boolean
occupancy grid.
*/
package occupancy

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/clustertomo/geom"
)

// Field is a boolean value per grid cell.
type Field struct {
	Grid     *geom.Grid
	Occupied []bool
}

// NewField wraps a pre-binned occupancy slice. The slice is not copied.
func NewField(g *geom.Grid, occupied []bool) (*Field, error) {
	if len(occupied) != g.Volume {
		return nil, &ShapeError{
			Particle: -1, Axis: -1,
			Msg: fmt.Sprintf("occupancy has %d cells, but grid %v has %d",
				len(occupied), g.Shape, g.Volume),
		}
	}
	return &Field{g, occupied}, nil
}

// Count returns the number of occupied cells.
func (f *Field) Count() int {
	n := 0
	for _, occ := range f.Occupied {
		if occ {
			n++
		}
	}
	return n
}

// Binner performs nearest grid point binning of positions within a box of
// a given width.
type Binner struct {
	width float64
	cells []int
	grid  *geom.Grid
}

// NewBinner creates a Binner for a box of the given width with cells[i]
// cells along axis i.
func NewBinner(width float64, cells []int) (*Binner, error) {
	if !(width > 0) {
		return nil, &geom.ConfigError{
			Field: "BoxWidth", Msg: fmt.Sprintf("must be positive, but is %g", width),
		}
	} else if len(cells) < 2 {
		return nil, &geom.ConfigError{
			Field: "Cells", Msg: fmt.Sprintf("need at least 2 axes, got %d", len(cells)),
		}
	}
	for i, c := range cells {
		if c < 1 {
			return nil, &geom.ConfigError{
				Field: "Cells", Msg: fmt.Sprintf("axis %d has %d cells", i, c),
			}
		}
	}

	return &Binner{width, append([]int{}, cells...), geom.NewGrid(cells)}, nil
}

// Grid returns the grid positions are binned onto.
func (b *Binner) Grid() *geom.Grid { return b.grid }

// Bin maps each position onto the grid. It returns the occupancy field and
// the flat index of the cell containing each particle.
func (b *Binner) Bin(positions [][]float64) (*Field, []int, error) {
	occupied := make([]bool, b.grid.Volume)
	particleCells := make([]int, len(positions))

	dim := len(b.cells)
	for i, x := range positions {
		if len(x) != dim {
			return nil, nil, &ShapeError{
				Particle: i, Axis: -1,
				Msg: fmt.Sprintf("has %d coordinates, but the box has %d axes",
					len(x), dim),
			}
		}

		idx := 0
		for j := range x {
			c, err := b.cell(x[j], j)
			if err != nil {
				err.Particle = i
				return nil, nil, err
			}
			idx += c * b.grid.Strides[j]
		}

		occupied[idx] = true
		particleCells[i] = idx
	}

	return &Field{b.grid, occupied}, particleCells, nil
}

func (b *Binner) cell(x float64, axis int) (int, *ShapeError) {
	if math.IsNaN(x) || x < 0 || x >= b.width {
		return 0, &ShapeError{
			Axis: axis, Value: x,
			Msg: fmt.Sprintf("coordinate must be in range [0, %g)", b.width),
		}
	}

	c := int(x * float64(b.cells[axis]) / b.width)
	// Rounding can push values just below the box width into the next cell.
	if c >= b.cells[axis] {
		c = b.cells[axis] - 1
	}
	return c, nil
}

// ShapeError reports input data which does not fit the declared box or
// grid. Particle and Axis are -1 when they do not apply.
type ShapeError struct {
	Particle, Axis int
	Value          float64
	Msg            string
}

func (e *ShapeError) Error() string {
	switch {
	case e.Particle >= 0 && e.Axis >= 0:
		return fmt.Sprintf("particle %d, axis %d (value %g): %s",
			e.Particle, e.Axis, e.Value, e.Msg)
	case e.Particle >= 0:
		return fmt.Sprintf("particle %d: %s", e.Particle, e.Msg)
	}
	return e.Msg
}
