/*package cluster identifies contiguous clusters of occupied cells in an
n-dimensional occupancy grid.

Labeling is a Hoshen-Kopelman style union-find over occupied cells in
raster order: each occupied cell is joined to its occupied forward
neighbours, with wrap neighbours included only along periodic axes.
*/
package cluster

import (
	"sort"

	"github.com/phil-mansfield/clustertomo/geom"
	"github.com/phil-mansfield/clustertomo/occupancy"
)

// Empty is the label of unoccupied cells.
const Empty = -1

// Labeler assigns cluster labels under a fixed set of boundary conditions and
// adjacency rule.
type Labeler struct {
	bc   geom.Boundaries
	conn geom.Connectivity
}

// Labels is the result of labeling a single snapshot. Label values are only
// meaningful within that snapshot.
type Labels struct {
	Field *occupancy.Field
	// Label[i] is the cluster of cell i, or Empty.
	Label []int32
	// Volumes[k] is the number of cells in cluster k.
	Volumes []int
	// Largest is the volume of the largest cluster, LargestLabel its label
	// (Empty if there are no clusters).
	Largest      int
	LargestLabel int32
}

// NewLabeler returns a Labeler.
func NewLabeler(bc geom.Boundaries, conn geom.Connectivity) *Labeler {
	return &Labeler{append(geom.Boundaries{}, bc...), conn}
}

// Label finds the clusters in f. The partition of cells into clusters does
// not depend on anything but f, the boundaries and the connectivity; labels
// are numbered 0, 1, ... in order of each cluster's first cell.
func (l *Labeler) Label(f *occupancy.Field) (*Labels, error) {
	g := f.Grid
	if err := l.bc.Check(g.Dim()); err != nil {
		return nil, err
	}

	parent := make([]int32, g.Volume)
	size := make([]int32, g.Volume)
	for i := range parent {
		parent[i] = int32(i)
		size[i] = 1
	}

	offsets := l.conn.ForwardOffsets(g.Dim())
	for idx, occ := range f.Occupied {
		if !occ {
			continue
		}
		for _, d := range offsets {
			next, ok := g.Offset(idx, d, l.bc)
			if ok && f.Occupied[next] {
				union(parent, size, int32(idx), int32(next))
			}
		}
	}

	lab := &Labels{
		Field: f, Label: make([]int32, g.Volume), LargestLabel: Empty,
	}
	roots := map[int32]int32{}
	for idx, occ := range f.Occupied {
		if !occ {
			lab.Label[idx] = Empty
			continue
		}

		r := find(parent, int32(idx))
		k, ok := roots[r]
		if !ok {
			k = int32(len(lab.Volumes))
			roots[r] = k
			lab.Volumes = append(lab.Volumes, int(size[r]))
			// Ties go to the cluster whose first cell has the lowest flat
			// index, with axis 0 varying fastest.
			if int(size[r]) > lab.Largest {
				lab.Largest, lab.LargestLabel = int(size[r]), k
			}
		}
		lab.Label[idx] = k
	}

	return lab, nil
}

// find returns the root of x, halving the path as it goes.
func find(parent []int32, x int32) int32 {
	for parent[x] != x {
		parent[x] = parent[parent[x]]
		x = parent[x]
	}
	return x
}

func union(parent, size []int32, a, b int32) {
	ra, rb := find(parent, a), find(parent, b)
	if ra == rb {
		return
	}
	if size[ra] < size[rb] {
		ra, rb = rb, ra
	}
	parent[rb] = ra
	size[ra] += size[rb]
}

// Clusters returns the number of clusters.
func (lab *Labels) Clusters() int { return len(lab.Volumes) }

// Partition returns the cell indices of every cluster. Each cluster is
// sorted and clusters are ordered by their smallest cell, so two labelings
// of the same field compare equal regardless of label values.
func (lab *Labels) Partition() [][]int {
	out := make([][]int, len(lab.Volumes))
	for idx, k := range lab.Label {
		if k != Empty {
			out[k] = append(out[k], idx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
