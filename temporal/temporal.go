/*package temporal implements temporal tomography: it follows pairs of
particles through a sequence of snapshots and measures how long they spend
apart between periods in the same cluster.

Two particles are co-membered at a time point if both belong to a cluster
and it is the same cluster. For every pair, each maximal run of time points
without co-membership which lies between two co-membered time points is a
temporal gap, and its length in time points is its size s_t. Runs before the
first or after the last co-membered point are not gaps.

A Tracker stores one int32 label per particle per time point, so N particles
over T snapshots take 4NT bytes. Computing gaps visits every pair at every
time point, which is O(N^2 T).
*/
package temporal

import (
	"fmt"
	stdio "io"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/clustertomo/geom"
	"github.com/phil-mansfield/clustertomo/io"
)

// absent marks a particle which belongs to no cluster at a time point.
const absent = -1

// Tracker accumulates the cluster labels of particles 0 through n - 1 over
// a sequence of snapshots.
type Tracker struct {
	n, snapshots int
	// labels[i*snapshots + t] is the label of particle i at time point t.
	labels []int32
	snaps  []int

	available int

	// Workers is the number of goroutines used by Gaps.
	Workers int
}

// BlockReader is a source of membership blocks, such as an
// io.MembershipReader. Next returns io.EOF after the last block.
type BlockReader interface {
	Next() (*io.Block, error)
}

// NewTracker creates a Tracker for particles with IDs 0 through n - 1 over
// at most the given number of snapshots.
func NewTracker(n, snapshots int) (*Tracker, error) {
	if n <= 0 {
		return nil, &geom.ConfigError{
			Field: "Particles", Msg: fmt.Sprintf("%d is not positive", n),
		}
	} else if snapshots <= 0 {
		return nil, &geom.ConfigError{
			Field: "Snapshots", Msg: fmt.Sprintf("%d is not positive", snapshots),
		}
	}

	t := &Tracker{
		n: n, snapshots: snapshots, Workers: 1,
		labels: make([]int32, n*snapshots),
	}
	for i := range t.labels {
		t.labels[i] = absent
	}
	return t, nil
}

// Len returns the number of time points added so far.
func (t *Tracker) Len() int { return len(t.snaps) }

// Snapshots returns the snapshot index of each time point added so far.
func (t *Tracker) Snapshots() []int { return t.snaps }

// Add records the labels of block as the next time point. Particles with
// IDs of n or more are ignored.
func (t *Tracker) Add(b *io.Block) error {
	if len(t.snaps) == t.snapshots {
		return &geom.ConfigError{
			Field: "Snapshots",
			Msg: fmt.Sprintf("snapshot %d is past the %d snapshots being tracked",
				b.Snapshot, t.snapshots),
		}
	} else if k := len(t.snaps); k > 0 && b.Snapshot <= t.snaps[k-1] {
		return fmt.Errorf("snapshot %d follows snapshot %d",
			b.Snapshot, t.snaps[k-1])
	}

	for id, label := range b.Labels {
		if label < 0 || label > math.MaxInt32 {
			return fmt.Errorf("label %d of particle %d in snapshot %d "+
				"is out of range", label, id, b.Snapshot)
		}
	}

	tp := len(t.snaps)
	for id, label := range b.Labels {
		if id >= t.available {
			t.available = id + 1
		}
		if id < t.n {
			t.labels[id*t.snapshots+tp] = int32(label)
		}
	}
	t.snaps = append(t.snaps, b.Snapshot)
	return nil
}

// ReadAll adds blocks from r until it is exhausted or the Tracker is full.
func (t *Tracker) ReadAll(r BlockReader) error {
	for len(t.snaps) < t.snapshots {
		b, err := r.Next()
		if err == stdio.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if err := t.Add(b); err != nil {
			return err
		}
	}
	return nil
}

// Survey reads r to its end and returns the number of blocks and one more
// than the largest particle ID it holds.
func Survey(r BlockReader) (snapshots, particles int, err error) {
	for {
		b, err := r.Next()
		if err == stdio.EOF {
			return snapshots, particles, nil
		} else if err != nil {
			return 0, 0, err
		}
		snapshots++
		for id := range b.Labels {
			if id >= particles {
				particles = id + 1
			}
		}
	}
}

// Histogram counts temporal gaps by size.
type Histogram struct {
	// Counts[s] is the number of gaps of s time points.
	Counts []int
	// Pairs is the number of particle pairs, n(n - 1)/2.
	Pairs int
	// Contributing is the number of pairs which were co-membered at two or
	// more time points.
	Contributing int
	// Snapshots is the number of time points.
	Snapshots int
}

// Gaps counts the temporal gaps of every pair of tracked particles. It
// returns a *geom.ConfigError if no added block contained a particle ID as
// large as n - 1.
func (t *Tracker) Gaps() (*Histogram, error) {
	if t.n > t.available {
		return nil, &geom.ConfigError{
			Field: "Particles",
			Msg: fmt.Sprintf("%d particles requested, but only %d are "+
				"present in the membership data", t.n, t.available),
		}
	}

	T := len(t.snaps)
	workers := t.Workers
	if workers < 1 {
		workers = 1
	}

	out := make(chan *Histogram, workers)
	for id := 0; id < workers-1; id++ {
		go t.chanGaps(id, workers, T, out)
	}
	t.chanGaps(workers-1, workers, T, out)

	hist := &Histogram{
		Counts: make([]int, T), Pairs: t.n * (t.n - 1) / 2, Snapshots: T,
	}
	for i := 0; i < workers; i++ {
		h := <-out
		for s, c := range h.Counts {
			hist.Counts[s] += c
		}
		hist.Contributing += h.Contributing
	}
	return hist, nil
}

// chanGaps counts the gaps of pairs (i, j) with i % workers == id.
func (t *Tracker) chanGaps(id, workers, T int, out chan<- *Histogram) {
	h := &Histogram{Counts: make([]int, T)}
	for i := id; i < t.n; i += workers {
		li := t.labels[i*t.snapshots : i*t.snapshots+T]
		for j := i + 1; j < t.n; j++ {
			lj := t.labels[j*t.snapshots : j*t.snapshots+T]
			if pairGaps(li, lj, h.Counts) {
				h.Contributing++
			}
		}
	}
	out <- h
}

// pairGaps adds the gaps between two label sequences to counts and reports
// whether the pair was co-membered at two or more time points.
func pairGaps(li, lj []int32, counts []int) bool {
	last, together := -1, 0
	for tp := range li {
		if li[tp] == absent || li[tp] != lj[tp] {
			continue
		}
		if last >= 0 && tp-last > 1 {
			counts[tp-last-1]++
		}
		last = tp
		together++
	}
	return together >= 2
}

// Total returns the total number of gaps.
func (h *Histogram) Total() int {
	n := 0
	for _, c := range h.Counts {
		n += c
	}
	return n
}

// PMF returns the probability of each gap size given that a gap occurred.
// It is all zeros if there are no gaps.
func (h *Histogram) PMF() []float64 {
	p := h.float()
	if total := floats.Sum(p); total > 0 {
		floats.Scale(1/total, p)
	}
	return p
}

// Rate returns the expected number of gaps of each size per pair per
// snapshot.
func (h *Histogram) Rate() []float64 {
	r := h.float()
	if norm := float64(h.Pairs) * float64(h.Snapshots); norm > 0 {
		floats.Scale(1/norm, r)
	}
	return r
}

func (h *Histogram) float() []float64 {
	x := make([]float64, len(h.Counts))
	for s, c := range h.Counts {
		x[s] = float64(c)
	}
	return x
}
