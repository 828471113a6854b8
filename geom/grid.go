package geom

// Grid provides an interface for reasoning over a 1D slice as if it were an
// n-dimensional grid. Axis 0 is the fastest-varying index.
type Grid struct {
	Shape   []int
	Strides []int
	Volume  int
}

// NewGrid returns a new Grid instance.
func NewGrid(shape []int) *Grid {
	g := &Grid{}
	g.Init(shape)
	return g
}

// Init initializes a Grid instance.
func (g *Grid) Init(shape []int) {
	g.Shape = append(g.Shape[:0], shape...)
	g.Strides = make([]int, len(shape))

	g.Volume = 1
	for i := range shape {
		g.Strides[i] = g.Volume
		g.Volume *= shape[i]
	}
}

// Dim returns the number of axes in the grid.
func (g *Grid) Dim() int { return len(g.Shape) }

// Idx returns the grid index corresponding to a set of coordinates.
func (g *Grid) Idx(coords []int) int {
	idx := 0
	for i, x := range coords {
		idx += x * g.Strides[i]
	}
	return idx
}

// IdxCheck returns an index and true if the given coordinate are valid and
// false otherwise.
func (g *Grid) IdxCheck(coords []int) (idx int, ok bool) {
	if !g.BoundsCheck(coords) {
		return -1, false
	}
	return g.Idx(coords), true
}

// BoundsCheck returns true if the given coordinates are within the Grid and
// false otherwise.
func (g *Grid) BoundsCheck(coords []int) bool {
	if len(coords) != len(g.Shape) {
		return false
	}
	for i, x := range coords {
		if x < 0 || x >= g.Shape[i] {
			return false
		}
	}
	return true
}

// Coords writes the coordinates of a point to out from its grid index.
func (g *Grid) Coords(idx int, out []int) {
	for i := range g.Shape {
		out[i] = (idx / g.Strides[i]) % g.Shape[i]
	}
}

// Coord returns the coordinate of idx along a single axis.
func (g *Grid) Coord(idx, axis int) int {
	return (idx / g.Strides[axis]) % g.Shape[axis]
}

// Step returns the index reached by moving idx by delta cells along axis.
// Periodic axes wrap; ok is false if an open axis is stepped off its edge.
func (g *Grid) Step(idx, axis, delta int, bc Boundary) (next int, ok bool) {
	x := g.Coord(idx, axis)
	nx := x + delta
	if nx < 0 || nx >= g.Shape[axis] {
		if bc == Open {
			return -1, false
		}
		nx = pMod(nx, g.Shape[axis])
	}
	return idx + (nx-x)*g.Strides[axis], true
}

// Offset returns the index reached by moving idx by the vector delta, with
// per-axis boundary handling.
func (g *Grid) Offset(idx int, delta []int, bc Boundaries) (next int, ok bool) {
	next = idx
	for axis, d := range delta {
		if d == 0 {
			continue
		}
		if next, ok = g.Step(next, axis, d, bc[axis]); !ok {
			return -1, false
		}
	}
	return next, true
}

// Line returns the flat indices of the scan line along axis which passes
// through start. buf is reused if it is large enough.
func (g *Grid) Line(start, axis int, buf []int) []int {
	n := g.Shape[axis]
	if cap(buf) < n {
		buf = make([]int, n)
	}
	buf = buf[:n]

	base := start - g.Coord(start, axis)*g.Strides[axis]
	for i := range buf {
		buf[i] = base + i*g.Strides[axis]
	}
	return buf
}

// LineStarts returns the index of the first cell of every scan line along
// the given axis, in increasing order.
func (g *Grid) LineStarts(axis int) []int {
	starts := make([]int, 0, g.Volume/g.Shape[axis])
	for idx := 0; idx < g.Volume; idx++ {
		if g.Coord(idx, axis) == 0 {
			starts = append(starts, idx)
		}
	}
	return starts
}

// pMod computes the positive modulo x % y.
func pMod(x, y int) int {
	m := x % y
	if m < 0 {
		m += y
	}
	return m
}
