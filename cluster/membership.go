package cluster

import (
	"fmt"
)

// Member records that particle ID belonged to cluster Label in a snapshot.
type Member struct {
	ID, Label int
}

// Membership converts a cell labeling into per-particle membership.
// particleCells[id] is the cell holding particle id, as returned by
// occupancy.Binner.Bin. Clusters holding fewer than minParticles particles
// are left out, and so are their particles.
//
// The returned members are grouped by cluster, in label order, and by
// increasing ID within a cluster.
func (lab *Labels) Membership(
	particleCells []int, minParticles int,
) ([]Member, error) {
	counts := make([]int, len(lab.Volumes))
	for id, cell := range particleCells {
		if cell < 0 || cell >= len(lab.Label) {
			return nil, fmt.Errorf(
				"particle %d is in cell %d, but the grid has %d cells",
				id, cell, len(lab.Label),
			)
		}
		k := lab.Label[cell]
		if k == Empty {
			return nil, fmt.Errorf(
				"particle %d is in cell %d, which is unoccupied", id, cell,
			)
		}
		counts[k]++
	}

	// offsets[k] is where cluster k starts in the output.
	offsets := make([]int, len(counts)+1)
	for k, n := range counts {
		if n < minParticles {
			n = 0
		}
		offsets[k+1] = offsets[k] + n
	}

	out := make([]Member, offsets[len(counts)])
	next := append([]int{}, offsets[:len(counts)]...)
	for id, cell := range particleCells {
		k := lab.Label[cell]
		if counts[k] < minParticles {
			continue
		}
		out[next[k]] = Member{id, int(k)}
		next[k]++
	}

	return out, nil
}
