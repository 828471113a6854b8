package io

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/clustertomo/geom"
	"github.com/phil-mansfield/clustertomo/tomo"
)

const (
	ExampleSpatialFile = `[Spatial]

#######################
# Required Parameters #
#######################

# Snapshot file to analyze. Each line of the file is one particle, and
# whitespace-separated columns give its position.
Input = path/to/snapshot.txt
# Directory which the corner.txt, gapstat.txt and LC.txt tables are written
# to.
Output = path/to/output/dir

# Width of the simulation box along every axis. Positions must lie in
# [0, BoxWidth).
BoxWidth = 100
# Number of spatial dimensions.
Dimension = 2
# Number of cells along each axis: either a single number used for every
# axis or a comma-separated list with one entry per axis.
Cells = 64

#######################
# Optional Parameters #
#######################

# Boundary conditions, one character per axis: p (periodic) or o (open). A
# single character applies to every axis. Default is p.
# Boundary = pp

# Which cells count as neighbours: Face (cells sharing a face) or Full (any
# cell in the surrounding 3^n block). Default is Face.
# Connectivity = Face

# Columns of the snapshot files holding the coordinates, zero-indexed.
# Default is 0, 1, ..., Dimension - 1.
# Columns = 1, 2

# What counts as a gap along a scan line. ClusterReturn measures the
# distance between consecutive cells of the same cluster. EmptyRuns measures
# the runs of empty cells between occupied cells. Default is ClusterReturn.
# GapMode = ClusterReturn

# Ignores the largest cluster when GapMode = ClusterReturn. Default is true.
# ExcludeLargest = true

# Comma-separated list of the axes which scan lines run along. Default is
# every axis.
# ScanAxes = 0, 1

# Output files which are useful for profiling and debugging.
# ProfileFile = prof.out
# LogFile = log.out

# To analyze several snapshots (e.g. dump.00000000.txt, dump.00000100.txt),
# set IteratedInput to a printf format string for the file names. One row
# per snapshot is written to each output table.
# IteratedInput = path/to/dump.%08d.txt

# (Inclusive) range for this iteration, and the step between snapshot
# numbers. If IterationEnd isn't set, files will be iterated through until a
# missing one is found.
# IterationStart = 0
# IterationEnd = 100
# IterationStep = 1`

	ExampleMembershipFile = `[Membership]

#######################
# Required Parameters #
#######################

# Snapshot file, or IteratedInput pattern, as in [Spatial] mode.
Input = path/to/snapshot.txt
# Directory which clusters.bin is written to.
Output = path/to/output/dir

BoxWidth = 100
Dimension = 2
Cells = 64

#######################
# Optional Parameters #
#######################

# Boundary = pp
# Connectivity = Face
# Columns = 0, 1

# Clusters holding fewer particles than this are left out of the file.
# Default is 2.
# MinClusterParticles = 2

# Size in bits of each field of the membership file. Must be one of
# [8 | 16 | 32 | 64]. Default is 32 for each. The run fails before writing
# anything if a value would not fit.
# IndexBits = 32
# CountBits = 32
# IDBits = 32
# LabelBits = 32

# ProfileFile = prof.out
# LogFile = log.out

# IteratedInput = path/to/dump.%08d.txt
# IterationStart = 0
# IterationEnd = 100
# IterationStep = 1`

	ExampleTemporalFile = `[Temporal]

#######################
# Required Parameters #
#######################

# Membership file written by [Membership] mode.
Input = path/to/clusters.bin
# Directory which temporal_gapstat.txt is written to.
Output = path/to/output/dir

# Number of particles analyzed. Particles with IDs 0 through Particles - 1
# are compared pairwise, so the run time grows as Particles^2.
Particles = 1000

#######################
# Optional Parameters #
#######################

# Number of snapshots to read from the membership file. Default is all of
# them.
# Snapshots = 100

# ProfileFile = prof.out
# LogFile = log.out`
)

type SharedConfig struct {
	// Required
	Input, Output string
	// Optional
	LogFile, ProfileFile string
}

func (con *SharedConfig) ValidInput() bool {
	return con.Input != ""
}
func (con *SharedConfig) ValidOutput() bool {
	return con.Output != ""
}
func (con *SharedConfig) ValidLogFile() bool {
	return con.LogFile != ""
}
func (con *SharedConfig) ValidProfileFile() bool {
	return con.ProfileFile != ""
}

// SnapshotConfig holds the parameters shared by every mode which reads
// snapshot files.
type SnapshotConfig struct {
	SharedConfig
	// Required
	BoxWidth  float64
	Dimension int
	Cells     string

	// Optional
	Boundary, Connectivity, Columns string
	IteratedInput                   string
	IterationStart, IterationEnd    int
	IterationStep                   int
}

func defaultSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		Boundary: "p", Connectivity: "Face",
		IterationStart: 0, IterationEnd: -1, IterationStep: 1,
	}
}

func (con *SnapshotConfig) ValidBoxWidth() bool {
	return con.BoxWidth > 0
}
func (con *SnapshotConfig) ValidDimension() bool {
	return con.Dimension >= 2
}
func (con *SnapshotConfig) ValidCells() bool {
	_, err := con.Shape()
	return err == nil
}
func (con *SnapshotConfig) ValidBoundary() bool {
	_, err := con.Boundaries()
	return err == nil
}
func (con *SnapshotConfig) ValidConnectivity() bool {
	_, err := geom.ParseConnectivity(con.Connectivity)
	return err == nil
}
func (con *SnapshotConfig) ValidColumns() bool {
	_, err := con.ColumnIndices()
	return err == nil
}
func (con *SnapshotConfig) ValidIteratedInput() bool {
	return con.IteratedInput != ""
}
func (con *SnapshotConfig) ValidIterationStart() bool {
	return con.IterationStart >= 0
}
func (con *SnapshotConfig) ValidIterationEnd() bool {
	return con.IterationEnd >= con.IterationStart
}
func (con *SnapshotConfig) ValidIterationStep() bool {
	return con.IterationStep > 0
}

// Check returns a *geom.ConfigError describing the first invalid field.
func (con *SnapshotConfig) Check() error {
	if !con.ValidInput() && !con.ValidIteratedInput() {
		return &geom.ConfigError{Field: "Input", Msg: "not set"}
	} else if !con.ValidOutput() {
		return &geom.ConfigError{Field: "Output", Msg: "not set"}
	} else if !con.ValidBoxWidth() {
		return &geom.ConfigError{
			Field: "BoxWidth", Msg: fmt.Sprintf("%g is not positive", con.BoxWidth),
		}
	} else if !con.ValidDimension() {
		return &geom.ConfigError{
			Field: "Dimension", Msg: fmt.Sprintf("%d is less than 2", con.Dimension),
		}
	}

	if _, err := con.Shape(); err != nil {
		return err
	} else if _, err := con.Boundaries(); err != nil {
		return err
	} else if _, err := geom.ParseConnectivity(con.Connectivity); err != nil {
		return err
	} else if _, err := con.ColumnIndices(); err != nil {
		return err
	}

	if con.ValidIteratedInput() {
		if !con.ValidIterationStart() {
			return &geom.ConfigError{
				Field: "IterationStart",
				Msg:   fmt.Sprintf("%d is negative", con.IterationStart),
			}
		} else if !con.ValidIterationStep() {
			return &geom.ConfigError{
				Field: "IterationStep",
				Msg:   fmt.Sprintf("%d is not positive", con.IterationStep),
			}
		} else if con.IterationEnd != -1 && !con.ValidIterationEnd() {
			return &geom.ConfigError{
				Field: "IterationEnd",
				Msg: fmt.Sprintf("%d is before IterationStart, %d",
					con.IterationEnd, con.IterationStart),
			}
		}
	}
	return nil
}

// Shape returns the number of cells along each axis.
func (con *SnapshotConfig) Shape() ([]int, error) {
	cells, err := parseInts(con.Cells)
	if err != nil {
		return nil, &geom.ConfigError{Field: "Cells", Msg: err.Error()}
	}

	if len(cells) == 1 && con.Dimension > 1 {
		n := cells[0]
		cells = make([]int, con.Dimension)
		for i := range cells {
			cells[i] = n
		}
	}
	if len(cells) != con.Dimension {
		return nil, &geom.ConfigError{
			Field: "Cells",
			Msg: fmt.Sprintf("%d entries given for a %d-d grid",
				len(cells), con.Dimension),
		}
	}
	for i, n := range cells {
		if n < 1 {
			return nil, &geom.ConfigError{
				Field: "Cells", Msg: fmt.Sprintf("axis %d has %d cells", i, n),
			}
		}
	}
	return cells, nil
}

// Boundaries returns the boundary condition of each axis.
func (con *SnapshotConfig) Boundaries() (geom.Boundaries, error) {
	bc, err := geom.ParseBoundaries(strings.TrimSpace(con.Boundary))
	if err != nil {
		return nil, err
	}
	if len(bc) == 1 && con.Dimension > 1 {
		return geom.Uniform(con.Dimension, bc[0]), nil
	}
	if err := bc.Check(con.Dimension); err != nil {
		return nil, err
	}
	return bc, nil
}

// ConnectivityValue returns the parsed Connectivity field.
func (con *SnapshotConfig) ConnectivityValue() (geom.Connectivity, error) {
	return geom.ParseConnectivity(con.Connectivity)
}

// ColumnIndices returns the snapshot file columns holding each coordinate.
func (con *SnapshotConfig) ColumnIndices() ([]int, error) {
	if strings.TrimSpace(con.Columns) == "" {
		cols := make([]int, con.Dimension)
		for i := range cols {
			cols[i] = i
		}
		return cols, nil
	}

	cols, err := parseInts(con.Columns)
	if err != nil {
		return nil, &geom.ConfigError{Field: "Columns", Msg: err.Error()}
	} else if len(cols) != con.Dimension {
		return nil, &geom.ConfigError{
			Field: "Columns",
			Msg: fmt.Sprintf("%d columns given for %d dimensions",
				len(cols), con.Dimension),
		}
	}
	for _, c := range cols {
		if c < 0 {
			return nil, &geom.ConfigError{
				Field: "Columns", Msg: fmt.Sprintf("column %d is negative", c),
			}
		}
	}
	return cols, nil
}

// SnapshotFiles returns the snapshot files to be read, in order, along with
// their snapshot numbers. If IteratedInput is not set, Input is the only
// file and has number 0. If IterationEnd is not set, files are iterated
// through until a missing one is found.
func (con *SnapshotConfig) SnapshotFiles() (files []string, snaps []int) {
	if !con.ValidIteratedInput() {
		return []string{con.Input}, []int{0}
	}

	for i := con.IterationStart; con.IterationEnd < 0 ||
		i <= con.IterationEnd; i += con.IterationStep {

		file := fmt.Sprintf(con.IteratedInput, i)
		if con.IterationEnd < 0 {
			if _, err := os.Stat(file); err != nil {
				break
			}
		}
		files = append(files, file)
		snaps = append(snaps, i)
	}
	return files, snaps
}

type SpatialConfig struct {
	SnapshotConfig

	// Optional
	GapMode        string
	ExcludeLargest bool
	ScanAxes       string
}

type SpatialWrapper struct {
	Spatial SpatialConfig
}

func DefaultSpatialWrapper() *SpatialWrapper {
	con := SpatialConfig{SnapshotConfig: defaultSnapshotConfig()}
	con.GapMode = tomo.ClusterReturn.String()
	con.ExcludeLargest = true
	return &SpatialWrapper{con}
}

func (con *SpatialConfig) ValidGapMode() bool {
	_, ok := tomo.GapModeFromString(con.GapMode)
	return ok
}

// Check returns a *geom.ConfigError describing the first invalid field.
func (con *SpatialConfig) Check() error {
	if err := con.SnapshotConfig.Check(); err != nil {
		return err
	} else if !con.ValidGapMode() {
		return &geom.ConfigError{
			Field: "GapMode",
			Msg: fmt.Sprintf("must be one of [EmptyRuns | ClusterReturn], "+
				"got '%s'", con.GapMode),
		}
	}
	_, err := con.Axes()
	return err
}

// Axes returns the scan axes, or nil if every axis is scanned.
func (con *SpatialConfig) Axes() ([]int, error) {
	if strings.TrimSpace(con.ScanAxes) == "" {
		return nil, nil
	}
	axes, err := parseInts(con.ScanAxes)
	if err != nil {
		return nil, &geom.ConfigError{Field: "ScanAxes", Msg: err.Error()}
	}
	for _, axis := range axes {
		if axis < 0 || axis >= con.Dimension {
			return nil, &geom.ConfigError{
				Field: "ScanAxes",
				Msg: fmt.Sprintf("axis %d out of range for %d dimensions",
					axis, con.Dimension),
			}
		}
	}
	return axes, nil
}

// Scanner returns the tomo.Scanner described by the config. The config must
// have passed Check.
func (con *SpatialConfig) Scanner() (*tomo.Scanner, error) {
	bc, err := con.Boundaries()
	if err != nil {
		return nil, err
	}
	conn, err := con.ConnectivityValue()
	if err != nil {
		return nil, err
	}
	axes, err := con.Axes()
	if err != nil {
		return nil, err
	}
	mode, _ := tomo.GapModeFromString(con.GapMode)

	return &tomo.Scanner{
		Boundaries: bc, Connectivity: conn, Mode: mode,
		ExcludeLargest: con.ExcludeLargest, Axes: axes,
	}, nil
}

type MembershipConfig struct {
	SnapshotConfig

	// Optional
	MinClusterParticles                     int
	IndexBits, CountBits, IDBits, LabelBits int
}

type MembershipWrapper struct {
	Membership MembershipConfig
}

func DefaultMembershipWrapper() *MembershipWrapper {
	con := MembershipConfig{SnapshotConfig: defaultSnapshotConfig()}
	con.MinClusterParticles = 2
	w := DefaultWidths
	con.IndexBits, con.CountBits, con.IDBits, con.LabelBits =
		w.Index, w.Count, w.ID, w.Label
	return &MembershipWrapper{con}
}

func (con *MembershipConfig) ValidMinClusterParticles() bool {
	return con.MinClusterParticles >= 0
}

// Widths returns the membership file field widths.
func (con *MembershipConfig) Widths() Widths {
	return Widths{con.IndexBits, con.CountBits, con.IDBits, con.LabelBits}
}

// Check returns a *geom.ConfigError describing the first invalid field.
func (con *MembershipConfig) Check() error {
	if err := con.SnapshotConfig.Check(); err != nil {
		return err
	} else if !con.ValidMinClusterParticles() {
		return &geom.ConfigError{
			Field: "MinClusterParticles",
			Msg:   fmt.Sprintf("%d is negative", con.MinClusterParticles),
		}
	}
	return con.Widths().Validate()
}

type TemporalConfig struct {
	SharedConfig

	// Required
	Particles int

	// Optional
	Snapshots int
}

type TemporalWrapper struct {
	Temporal TemporalConfig
}

func DefaultTemporalWrapper() *TemporalWrapper {
	return &TemporalWrapper{TemporalConfig{Snapshots: -1}}
}

func (con *TemporalConfig) ValidParticles() bool {
	return con.Particles > 0
}
func (con *TemporalConfig) ValidSnapshots() bool {
	return con.Snapshots > 0
}

// Check returns a *geom.ConfigError describing the first invalid field.
func (con *TemporalConfig) Check() error {
	if !con.ValidInput() {
		return &geom.ConfigError{Field: "Input", Msg: "not set"}
	} else if !con.ValidOutput() {
		return &geom.ConfigError{Field: "Output", Msg: "not set"}
	} else if !con.ValidParticles() {
		return &geom.ConfigError{
			Field: "Particles", Msg: fmt.Sprintf("%d is not positive", con.Particles),
		}
	} else if con.Snapshots != -1 && !con.ValidSnapshots() {
		return &geom.ConfigError{
			Field: "Snapshots", Msg: fmt.Sprintf("%d is not positive", con.Snapshots),
		}
	}
	return nil
}

// ReadSpatialConfig reads and checks a [Spatial] config file.
func ReadSpatialConfig(fname string) (*SpatialConfig, error) {
	wrap := DefaultSpatialWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	if err := wrap.Spatial.Check(); err != nil {
		return nil, err
	}
	return &wrap.Spatial, nil
}

// ReadMembershipConfig reads and checks a [Membership] config file.
func ReadMembershipConfig(fname string) (*MembershipConfig, error) {
	wrap := DefaultMembershipWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	if err := wrap.Membership.Check(); err != nil {
		return nil, err
	}
	return &wrap.Membership, nil
}

// ReadTemporalConfig reads and checks a [Temporal] config file.
func ReadTemporalConfig(fname string) (*TemporalConfig, error) {
	wrap := DefaultTemporalWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	if err := wrap.Temporal.Check(); err != nil {
		return nil, err
	}
	return &wrap.Temporal, nil
}

// parseInts parses a comma-separated list of integers.
func parseInts(s string) ([]int, error) {
	toks := strings.Split(s, ",")
	out := make([]int, 0, len(toks))
	for _, tok := range toks {
		tok = strings.TrimSpace(tok)
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not an integer", tok)
		}
		out = append(out, n)
	}
	return out, nil
}
