/*package tomo implements spatial cluster tomography: it cuts a labeled
occupancy grid with every axis-aligned scan line and measures the gaps
between cluster intersections along each line.

From the gap sizes it computes the gap-size statistics g(s~), where s~ is the
effective gap size (min(s, L - s) along periodic axes and s along open ones),
and the corner contribution

	C = sum_{s < L/2} s (g(s) + g(L - 1 - s)) / 2L

where g is the histogram of raw gap sizes mod L per scan line and L is the
length of the scanned axis. Each raw gap u along a periodic axis therefore
carries weight u mod L if that is below L/2 and L - 1 - (u mod L)
otherwise. Along open axes a gap carries weight u. With EmptyRuns the same
weights are applied to the empty runs.

The corner site count is the number of occupied sites whose forward
neighbour along an axis crossing the scan lines is empty, counted once per
site. Along periodic axes the neighbour of the last cell is the first.
*/
package tomo

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/clustertomo/cluster"
	"github.com/phil-mansfield/clustertomo/geom"
	"github.com/phil-mansfield/clustertomo/occupancy"
)

// GapMode selects what counts as a gap along a scan line.
type GapMode int

const (
	// EmptyRuns measures each maximal run of unoccupied cells which lies
	// between two occupied cells. Runs touching the end of an open axis are
	// not gaps; along a periodic axis the run crossing the wrap point is a
	// single gap.
	EmptyRuns GapMode = iota
	// ClusterReturn measures the distance between consecutive cells of the
	// same cluster along the line, including the wrap-around return along
	// periodic axes.
	ClusterReturn
)

func (m GapMode) String() string {
	switch m {
	case EmptyRuns:
		return "EmptyRuns"
	case ClusterReturn:
		return "ClusterReturn"
	}
	return "Unknown"
}

// GapModeFromString converts a mode name to a GapMode.
func GapModeFromString(s string) (GapMode, bool) {
	for m := EmptyRuns; m <= ClusterReturn; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return EmptyRuns, false
}

// Scanner holds the configuration of a spatial tomography run. It keeps no
// state between calls.
type Scanner struct {
	Boundaries   geom.Boundaries
	Connectivity geom.Connectivity
	Mode         GapMode
	// ExcludeLargest ignores the cells of the largest cluster. Only used by
	// ClusterReturn.
	ExcludeLargest bool
	// Axes lists the axes scan lines run along. All axes if nil.
	Axes []int
}

// Result contains the tomography statistics of a single snapshot.
type Result struct {
	Corner float64
	// CornerSites is the number of occupied sites at which the occupancy
	// changes to empty between adjacent scan lines.
	CornerSites int
	// Gaps lists effective gap sizes, axis by axis and line by line.
	Gaps []int
	// Counts[s] is the number of gaps with effective size s.
	Counts []int
	// Lines is the number of scan lines.
	Lines int
	// Largest is the volume of the largest cluster in cells. Several
	// particles binned into one cell count once.
	Largest int
}

// Histogram returns g(s): the number of gaps of each effective size per scan
// line.
func (r *Result) Histogram() []float64 {
	g := make([]float64, len(r.Counts))
	for s, n := range r.Counts {
		g[s] = float64(n)
	}
	if r.Lines > 0 {
		floats.Scale(1/float64(r.Lines), g)
	}
	return g
}

// CornerWeight returns the weight of a raw gap of size u along an axis of
// length L in the corner contribution.
func CornerWeight(u, L int, periodic bool) int {
	if !periodic {
		return u
	}
	u %= L
	if u < L/2 {
		return u
	}
	return L - 1 - u
}

// Effective returns the size of a gap of raw size s along a periodic axis of
// length L, min(s, L - s).
func Effective(s, L int) int {
	if L-s < s {
		return L - s
	}
	return s
}

// Analyze labels the field and scans it.
func (sc *Scanner) Analyze(f *occupancy.Field) (*Result, error) {
	lab, err := cluster.NewLabeler(sc.Boundaries, sc.Connectivity).Label(f)
	if err != nil {
		return nil, err
	}
	return sc.Scan(lab)
}

// Scan runs every scan line through the labeled field.
func (sc *Scanner) Scan(lab *cluster.Labels) (*Result, error) {
	g := lab.Field.Grid
	if err := sc.Boundaries.Check(g.Dim()); err != nil {
		return nil, err
	}
	axes, err := sc.axes(g.Dim())
	if err != nil {
		return nil, err
	}

	maxLen := 0
	for _, axis := range axes {
		if g.Shape[axis] > maxLen {
			maxLen = g.Shape[axis]
		}
	}

	res := &Result{Counts: make([]int, maxLen+1), Largest: lab.Largest}
	excluded := int32(cluster.Empty)
	if sc.ExcludeLargest {
		excluded = lab.LargestLabel
	}

	var (
		line []int
		raw  []int
	)
	l := &lineScan{}
	for _, axis := range axes {
		L := g.Shape[axis]
		periodic := sc.Boundaries[axis] == geom.Periodic

		for _, start := range g.LineStarts(axis) {
			line = g.Line(start, axis, line)
			switch sc.Mode {
			case EmptyRuns:
				raw = l.emptyRuns(lab.Field.Occupied, line, periodic, raw[:0])
			case ClusterReturn:
				raw = l.clusterReturns(lab.Label, line, periodic, excluded, raw[:0])
			default:
				return nil, fmt.Errorf("unrecognized gap mode %d", sc.Mode)
			}

			for _, u := range raw {
				res.Corner += float64(CornerWeight(u, L, periodic)) / float64(2*L)

				s := u
				if periodic {
					s = Effective(u, L)
				}
				if s == 0 {
					continue
				}
				res.Gaps = append(res.Gaps, s)
				res.Counts[s]++
			}
			res.Lines++
		}
	}

	if res.Lines > 0 {
		res.Corner /= float64(res.Lines)
	}
	res.CornerSites = sc.cornerSites(lab.Field, axes)
	return res, nil
}

// cornerSites counts the occupied sites with an empty forward neighbour
// along any axis which crosses at least one of the scanned axes.
func (sc *Scanner) cornerSites(f *occupancy.Field, axes []int) int {
	g := f.Grid
	crossing := []int{}
	for b := 0; b < g.Dim(); b++ {
		for _, a := range axes {
			if a != b {
				crossing = append(crossing, b)
				break
			}
		}
	}

	n := 0
	for idx, occ := range f.Occupied {
		if !occ {
			continue
		}
		for _, b := range crossing {
			next, ok := g.Step(idx, b, 1, sc.Boundaries[b])
			if ok && !f.Occupied[next] {
				n++
				break
			}
		}
	}
	return n
}

func (sc *Scanner) axes(dim int) ([]int, error) {
	if sc.Axes == nil {
		axes := make([]int, dim)
		for i := range axes {
			axes[i] = i
		}
		return axes, nil
	}

	seen := make([]bool, dim)
	for _, axis := range sc.Axes {
		if axis < 0 || axis >= dim {
			return nil, &geom.ConfigError{
				Field: "Axes",
				Msg:   fmt.Sprintf("axis %d out of range for a %d-d grid", axis, dim),
			}
		} else if seen[axis] {
			return nil, &geom.ConfigError{
				Field: "Axes", Msg: fmt.Sprintf("axis %d listed twice", axis),
			}
		}
		seen[axis] = true
	}
	return sc.Axes, nil
}

// lineScan holds buffers reused between lines of one Scan call.
type lineScan struct {
	first, last map[int32]int
	order       []int32
}

// emptyRuns appends the raw lengths of the empty runs along a line to out.
func (l *lineScan) emptyRuns(
	occupied []bool, line []int, periodic bool, out []int,
) []int {
	first, prev := -1, -1
	for i, idx := range line {
		if !occupied[idx] {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			out = append(out, i-prev-1)
		} else if prev < 0 {
			first = i
		}
		prev = i
	}

	if periodic && first >= 0 {
		if s := first + len(line) - prev - 1; s > 0 {
			out = append(out, s)
		}
	}
	return out
}

// clusterReturns appends to out the distance between consecutive cells of
// each cluster along a line.
func (l *lineScan) clusterReturns(
	labels []int32, line []int, periodic bool, excluded int32, out []int,
) []int {
	if l.first == nil {
		l.first, l.last = map[int32]int{}, map[int32]int{}
	}
	for k := range l.first {
		delete(l.first, k)
		delete(l.last, k)
	}
	l.order = l.order[:0]

	for i, idx := range line {
		k := labels[idx]
		if k == cluster.Empty || k == excluded {
			continue
		}
		if last, ok := l.last[k]; ok {
			out = append(out, i-last)
		} else {
			l.first[k] = i
			l.order = append(l.order, k)
		}
		l.last[k] = i
	}

	if periodic {
		for _, k := range l.order {
			out = append(out, len(line)+l.first[k]-l.last[k])
		}
	}
	return out
}
