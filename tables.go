package clustertomo

import (
	"fmt"
	"path"

	"github.com/phil-mansfield/clustertomo/io"
	"github.com/phil-mansfield/clustertomo/temporal"
	"github.com/phil-mansfield/clustertomo/tomo"
)

// WriteSpatialTables writes the corner, gap-statistic and largest-cluster
// tables for a run to dir. Each table has one row per snapshot.
func WriteSpatialTables(
	dir string, snaps []int, results []*tomo.Result, sc *tomo.Scanner,
) error {
	if len(snaps) != len(results) {
		return fmt.Errorf("%d snapshots given, but %d results",
			len(snaps), len(results))
	}

	ss := make([]float64, len(snaps))
	corners := make([]float64, len(snaps))
	sites := make([]float64, len(snaps))
	largest := make([]float64, len(snaps))
	gaps := make([][]float64, len(snaps))
	for i, r := range results {
		ss[i] = float64(snaps[i])
		corners[i] = r.Corner
		sites[i] = float64(r.CornerSites)
		largest[i] = float64(r.Largest)
		gaps[i] = append([]float64{ss[i]}, r.Histogram()...)
	}

	settings := fmt.Sprintf(
		"Boundary: %s, Connectivity: %s, GapMode: %s, ExcludeLargest: %v",
		sc.Boundaries, sc.Connectivity, sc.Mode, sc.ExcludeLargest,
	)

	err := io.WriteTableFile(path.Join(dir, io.CornerTable), []string{
		settings,
		"Column 0: snapshot",
		"Column 1: corner contribution, sum_{s<L/2} s (g(s) + g(L-1-s)) / 2L",
		"Column 2: occupied sites next to an empty site across the scan lines",
	}, [][]float64{ss, corners, sites})
	if err != nil {
		return err
	}

	err = io.WriteTableFile(path.Join(dir, io.LargestTable), []string{
		settings,
		"Column 0: snapshot",
		"Column 1: volume of the largest cluster in occupied cells, " +
			"with particles sharing a cell counted once",
	}, [][]float64{ss, largest})
	if err != nil {
		return err
	}

	return io.WriteRowsFile(path.Join(dir, io.GapStatTable), []string{
		settings,
		"Column 0: snapshot",
		"Column 1 + s: g(s), gaps of effective size s per scan line",
	}, gaps)
}

// WriteTemporalTable writes the temporal gap histogram to dir.
func WriteTemporalTable(dir string, h *temporal.Histogram) error {
	st := make([]float64, len(h.Counts))
	counts := make([]float64, len(h.Counts))
	for s, c := range h.Counts {
		st[s], counts[s] = float64(s), float64(c)
	}

	return io.WriteTableFile(path.Join(dir, io.TemporalGapStatTable), []string{
		fmt.Sprintf("Pairs: %d, Contributing pairs: %d, Snapshots: %d",
			h.Pairs, h.Contributing, h.Snapshots),
		"Column 0: s_t, gap size in snapshots",
		"Column 1: number of gaps",
		"Column 2: probability of s_t given a gap",
		"Column 3: gaps per pair per snapshot",
	}, [][]float64{st, counts, h.PMF(), h.Rate()})
}
