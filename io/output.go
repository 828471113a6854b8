package io

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Output table names, relative to the configured output directory.
const (
	CornerTable          = "corner.txt"
	GapStatTable         = "gapstat.txt"
	LargestTable         = "LC.txt"
	TemporalGapStatTable = "temporal_gapstat.txt"
	MembershipFile       = "clusters.bin"
)

// WriteTable writes cols as a text table with one column per slice. All
// columns must have the same length. Each header line is written behind a
// "# ", and values are tab-separated.
func WriteTable(w io.Writer, header []string, cols [][]float64) error {
	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0])
	}
	for i := range cols {
		if len(cols[i]) != rows {
			return fmt.Errorf(
				"column %d has length %d, but column 0 has length %d",
				i, len(cols[i]), rows,
			)
		}
	}

	bw := bufio.NewWriter(w)
	for _, line := range header {
		fmt.Fprintf(bw, "# %s\n", line)
	}

	toks := make([]string, len(cols))
	for r := 0; r < rows; r++ {
		for c := range cols {
			toks[c] = strconv.FormatFloat(cols[c][r], 'g', -1, 64)
		}
		bw.WriteString(strings.Join(toks, "\t"))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteRows writes rows as a text table, one line per row. Rows may differ
// in length, which is how per-snapshot histograms of different widths are
// stored.
func WriteRows(w io.Writer, header []string, rows [][]float64) error {
	bw := bufio.NewWriter(w)
	for _, line := range header {
		fmt.Fprintf(bw, "# %s\n", line)
	}

	for _, row := range rows {
		for c, x := range row {
			if c > 0 {
				bw.WriteByte('\t')
			}
			bw.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteTableFile writes a table to the named file with WriteTable.
func WriteTableFile(file string, header []string, cols [][]float64) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := WriteTable(f, header, cols); err != nil {
		f.Close()
		return fmt.Errorf("writing '%s': %w", file, err)
	}
	return f.Close()
}

// WriteRowsFile writes rows to the named file with WriteRows.
func WriteRowsFile(file string, header []string, rows [][]float64) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := WriteRows(f, header, rows); err != nil {
		f.Close()
		return fmt.Errorf("writing '%s': %w", file, err)
	}
	return f.Close()
}
