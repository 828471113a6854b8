/*package clustertomo runs cluster tomography over sequences of particle
snapshots. A Manager reads snapshot files, bins them onto a grid and either
measures spatial gap statistics for every snapshot in parallel or writes
per-particle cluster membership for later temporal analysis.
*/
package clustertomo

import (
	"fmt"
	"log"
	"path"
	"runtime"

	"gonum.org/v1/gonum/stat"

	"github.com/phil-mansfield/clustertomo/cluster"
	"github.com/phil-mansfield/clustertomo/io"
	"github.com/phil-mansfield/clustertomo/occupancy"
	"github.com/phil-mansfield/clustertomo/temporal"
	"github.com/phil-mansfield/clustertomo/tomo"
)

// NumCores is the number of worker goroutines used by new Managers.
var NumCores = runtime.NumCPU()

// logEvery is the number of snapshots between progress messages.
const logEvery = 25

type Manager struct {
	files []string
	snaps []int
	cols  []int

	binner  *occupancy.Binner
	scanner *tomo.Scanner

	log     bool
	workers int
	ms      runtime.MemStats
}

// NewManager creates a Manager for the given snapshot files. snaps gives the
// snapshot number of each file and cols the columns holding coordinates.
func NewManager(
	files []string, snaps []int, cols []int,
	binner *occupancy.Binner, scanner *tomo.Scanner,
) (*Manager, error) {
	if len(files) != len(snaps) {
		return nil, fmt.Errorf(
			"%d snapshot files given, but %d snapshot numbers",
			len(files), len(snaps),
		)
	} else if len(files) == 0 {
		return nil, fmt.Errorf("no snapshot files given")
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i] <= snaps[i-1] {
			return nil, fmt.Errorf(
				"snapshot %d follows snapshot %d", snaps[i], snaps[i-1],
			)
		}
	}

	man := &Manager{
		files: files, snaps: snaps, cols: cols,
		binner: binner, scanner: scanner, workers: NumCores,
	}
	if man.workers < 1 {
		man.workers = 1
	}
	return man, nil
}

func (man *Manager) Log(flag bool) { man.log = flag }

// Workers sets the number of goroutines used by Spatial.
func (man *Manager) Workers(n int) {
	if n < 1 {
		n = 1
	}
	man.workers = n
}

// Snapshots returns the snapshot number of each file.
func (man *Manager) Snapshots() []int { return man.snaps }

// loadFile reads a snapshot and bins it.
func (man *Manager) loadFile(file string) (*occupancy.Field, []int, error) {
	xs, err := io.ReadPositions(file, man.cols)
	if err != nil {
		return nil, nil, err
	}
	f, cells, err := man.binner.Bin(xs)
	if err != nil {
		return nil, nil, fmt.Errorf("binning '%s': %w", file, err)
	}
	return f, cells, nil
}

type snapResult struct {
	i   int
	res *tomo.Result
	err error
}

// Spatial runs the tomography scanner on every snapshot. Results are
// returned in snapshot order.
func (man *Manager) Spatial() ([]*tomo.Result, error) {
	if man.scanner == nil {
		return nil, fmt.Errorf("Manager has no scanner")
	}

	workers := man.workers
	if workers > len(man.files) {
		workers = len(man.files)
	}
	out := make(chan snapResult, len(man.files))

	for id := 0; id < workers-1; id++ {
		go man.chanSpatial(id, workers, out)
	}
	man.chanSpatial(workers-1, workers, out)

	results := make([]*tomo.Result, len(man.files))
	var firstErr error
	for n := 1; n <= len(man.files); n++ {
		r := <-out
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		results[r.i] = r.res

		if man.log && (n%logEvery == 0 || n == len(man.files)) {
			log.Printf("Analyzed %d/%d snapshots", n, len(man.files))
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	man.logMemory()
	return results, nil
}

func (man *Manager) chanSpatial(id, workers int, out chan<- snapResult) {
	for i := id; i < len(man.files); i += workers {
		f, _, err := man.loadFile(man.files[i])
		if err != nil {
			out <- snapResult{i, nil, err}
			continue
		}

		res, err := man.scanner.Analyze(f)
		if err != nil {
			err = fmt.Errorf("analyzing '%s': %w", path.Base(man.files[i]), err)
		}
		out <- snapResult{i, res, err}
	}
}

// Membership labels every snapshot in order and writes the cluster of each
// particle to mw, one block per snapshot. Clusters holding fewer than
// minParticles particles are left out. The widths of the file's fields are
// checked against the first snapshot before anything is written.
func (man *Manager) Membership(
	mw *io.MembershipWriter, widths io.Widths, minParticles int,
) error {
	if man.scanner == nil {
		return fmt.Errorf("Manager has no scanner")
	}
	labeler := cluster.NewLabeler(man.scanner.Boundaries, man.scanner.Connectivity)

	for i, file := range man.files {
		f, cells, err := man.loadFile(file)
		if err != nil {
			return err
		}

		if i == 0 {
			n := len(cells)
			maxLabel := f.Grid.Volume
			if n < maxLabel {
				maxLabel = n
			}
			last := man.snaps[len(man.snaps)-1]
			if err := widths.Check(last, n, n-1, maxLabel-1); err != nil {
				return err
			}
		}

		lab, err := labeler.Label(f)
		if err != nil {
			return fmt.Errorf("labeling '%s': %w", path.Base(file), err)
		}
		ms, err := lab.Membership(cells, minParticles)
		if err != nil {
			return fmt.Errorf("membership of '%s': %w", path.Base(file), err)
		}
		if err := mw.WriteBlock(man.snaps[i], ms); err != nil {
			return fmt.Errorf("writing snapshot %d: %w", man.snaps[i], err)
		}

		if man.log && ((i+1)%logEvery == 0 || i+1 == len(man.files)) {
			log.Printf("Labeled %d/%d snapshots", i+1, len(man.files))
		}
	}

	man.logMemory()
	return nil
}

func (man *Manager) logMemory() {
	if man.log {
		runtime.ReadMemStats(&man.ms)
		log.Printf(
			"Alloc: %5d MB, Sys: %5d MB",
			man.ms.Alloc>>20, man.ms.Sys>>20,
		)
	}
}

// Summary returns the mean corner contribution and the mean largest-cluster
// volume of a set of results.
func Summary(results []*tomo.Result) (corner, largest float64) {
	if len(results) == 0 {
		return 0, 0
	}
	cs := make([]float64, len(results))
	ls := make([]float64, len(results))
	for i, r := range results {
		cs[i], ls[i] = r.Corner, float64(r.Largest)
	}
	return stat.Mean(cs, nil), stat.Mean(ls, nil)
}

// Track reads the membership file at file and counts the temporal gaps of
// particles 0 through particles - 1. If snapshots is -1 every block is
// used.
func Track(file string, particles, snapshots, workers int) (*temporal.Histogram, error) {
	mf, err := io.OpenMembership(file)
	if err != nil {
		return nil, err
	}
	defer mf.Close()

	total, available, err := temporal.Survey(mf)
	if err != nil {
		return nil, fmt.Errorf("reading '%s': %w", file, err)
	}
	if snapshots == -1 || snapshots > total {
		snapshots = total
	}
	if snapshots == 0 {
		return nil, fmt.Errorf("'%s' contains no snapshots", file)
	}
	log.Printf("'%s' holds %d snapshots of up to %d particles",
		path.Base(file), total, available)

	if err := mf.Rewind(); err != nil {
		return nil, err
	}
	tr, err := temporal.NewTracker(particles, snapshots)
	if err != nil {
		return nil, err
	}
	tr.Workers = workers
	if err := tr.ReadAll(mf); err != nil {
		return nil, fmt.Errorf("reading '%s': %w", file, err)
	}
	return tr.Gaps()
}
