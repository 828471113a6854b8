package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/phil-mansfield/clustertomo"
	"github.com/phil-mansfield/clustertomo/io"
	"github.com/phil-mansfield/clustertomo/occupancy"
	"github.com/phil-mansfield/clustertomo/tomo"
)

var (
	// Membership files are written little endian.
	membershipEndianness = binary.LittleEndian
)

// FileGroup contains utility files for logging and writing profiles to.
type FileGroup struct {
	log, prof *os.File
}

// Close closes the files inside FileGroup.
func (fg *FileGroup) Close() {
	if fg.log != nil {
		err := fg.log.Close()
		if err != nil {
			log.Fatal(err.Error())
		}
	}

	if fg.prof != nil {
		pprof.StopCPUProfile()
		err := fg.prof.Close()
		if err != nil {
			log.Fatal(err.Error())
		}
	}
}

func main() {
	var (
		spatialStr, membershipStr, temporalStr string
		exampleConfig                          string
	)
	vars := map[string]*string{
		"Spatial":       &spatialStr,
		"Membership":    &membershipStr,
		"Temporal":      &temporalStr,
		"ExampleConfig": &exampleConfig,
	}

	flag.IntVar(
		&clustertomo.NumCores, "Threads", runtime.NumCPU(),
		"Number of threads used. Default is the number of logical cores.",
	)
	flag.StringVar(
		&spatialStr, "Spatial", "",
		"Configuration file for [Spatial] mode, which measures the gap "+
			"statistics of each snapshot.",
	)
	flag.StringVar(
		&membershipStr, "Membership", "",
		"Configuration file for [Membership] mode, which writes the cluster "+
			"of every particle in every snapshot to a binary file.",
	)
	flag.StringVar(
		&temporalStr, "Temporal", "",
		"Configuration file for [Temporal] mode, which measures temporal gaps "+
			"from a file written by [Membership] mode.",
	)
	flag.StringVar(
		&exampleConfig,
		"ExampleConfig", "", "Prints an example configuration file of the "+
			"specified type to stdout. Accepted arguments are 'Spatial', "+
			"'Membership', and 'Temporal'.",
	)

	flag.Parse()

	modeName, err := getModeName(vars)
	if err != nil {
		log.Fatal(err.Error())
	}

	switch modeName {
	case "Spatial":
		con, err := io.ReadSpatialConfig(spatialStr)
		if err != nil {
			log.Fatal(err.Error())
		}
		spatialMain(con)

	case "Membership":
		con, err := io.ReadMembershipConfig(membershipStr)
		if err != nil {
			log.Fatal(err.Error())
		}
		membershipMain(con)

	case "Temporal":
		con, err := io.ReadTemporalConfig(temporalStr)
		if err != nil {
			log.Fatal(err.Error())
		}
		temporalMain(con)

	case "ExampleConfig":
		switch exampleConfig {
		case "Spatial":
			fmt.Println(io.ExampleSpatialFile)
		case "Membership":
			fmt.Println(io.ExampleMembershipFile)
		case "Temporal":
			fmt.Println(io.ExampleTemporalFile)
		default:
			log.Fatal(
				"Unrecognized 'ExampleConfig' argument. Only recognized " +
					"arguments are 'Spatial', 'Membership', and 'Temporal'.",
			)
		}
	default:
		panic("Impossible")
	}
}

// getModeName returns the name of the mode and fails with a descriptive error
// if the user provided less or more than one mode flag.
func getModeName(vars map[string]*string) (string, error) {
	setNames := []string{}

	for name, varPtr := range vars {
		if *varPtr != "" {
			setNames = append(setNames, name)
		}
	}

	if len(setNames) == 0 {
		return "", fmt.Errorf("No flags have been set.")
	}

	if len(setNames) > 1 {
		return "", fmt.Errorf(
			"The following flags were set: %s, but clustertomo "+
				"only accepts one flag at a time.",
			strings.Join(setNames, ", "),
		)
	}

	return setNames[0], nil
}

// setupIO creates the output directory and the log and profile files.
func setupIO(con *io.SharedConfig) *FileGroup {
	var err error
	fg := new(FileGroup)

	if con.ValidLogFile() {
		fg.log, err = os.Create(con.LogFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		log.SetOutput(fg.log)
	}

	if con.ValidProfileFile() {
		fg.prof, err = os.Create(con.ProfileFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		err = pprof.StartCPUProfile(fg.prof)
		if err != nil {
			log.Fatal(err.Error())
		}
	}

	if err = os.MkdirAll(con.Output, 0777); err != nil {
		log.Fatal(err.Error())
	}
	return fg
}

// newManager builds a Manager over the snapshots named by con.
func newManager(
	con *io.SnapshotConfig, sc *tomo.Scanner,
) *clustertomo.Manager {
	shape, err := con.Shape()
	if err != nil {
		log.Fatal(err.Error())
	}
	cols, err := con.ColumnIndices()
	if err != nil {
		log.Fatal(err.Error())
	}
	binner, err := occupancy.NewBinner(con.BoxWidth, shape)
	if err != nil {
		log.Fatal(err.Error())
	}

	files, snaps := con.SnapshotFiles()
	if len(files) == 0 {
		log.Fatalf("No snapshot files match '%s'.", con.IteratedInput)
	}
	log.Printf("Found %d snapshot files on a %v grid.", len(files), shape)

	man, err := clustertomo.NewManager(files, snaps, cols, binner, sc)
	if err != nil {
		log.Fatal(err.Error())
	}
	man.Log(true)
	return man
}

// spatialMain measures spatial gap statistics for every snapshot.
func spatialMain(con *io.SpatialConfig) {
	fg := setupIO(&con.SharedConfig)
	defer fg.Close()

	sc, err := con.Scanner()
	if err != nil {
		log.Fatal(err.Error())
	}
	man := newManager(&con.SnapshotConfig, sc)

	results, err := man.Spatial()
	if err != nil {
		log.Fatal(err.Error())
	}

	corner, largest := clustertomo.Summary(results)
	log.Printf("Mean corner contribution: %g, mean largest cluster: %g cells",
		corner, largest)

	log.Printf("Writing tables to %s", con.Output)
	err = clustertomo.WriteSpatialTables(con.Output, man.Snapshots(), results, sc)
	if err != nil {
		log.Fatal(err.Error())
	}
}

// membershipMain writes the cluster membership of every snapshot.
func membershipMain(con *io.MembershipConfig) {
	fg := setupIO(&con.SharedConfig)
	defer fg.Close()

	bc, err := con.Boundaries()
	if err != nil {
		log.Fatal(err.Error())
	}
	conn, err := con.ConnectivityValue()
	if err != nil {
		log.Fatal(err.Error())
	}
	man := newManager(
		&con.SnapshotConfig, &tomo.Scanner{Boundaries: bc, Connectivity: conn},
	)

	out := path.Join(con.Output, io.MembershipFile)
	log.Printf("Writing to %s", out)
	f, err := os.Create(out)
	if err != nil {
		log.Fatalf("Could not create %s.", out)
	}
	defer f.Close()

	mw, err := io.NewMembershipWriter(f, con.Widths(), membershipEndianness)
	if err != nil {
		log.Fatal(err.Error())
	}
	if err := man.Membership(mw, con.Widths(), con.MinClusterParticles); err != nil {
		log.Fatal(err.Error())
	}
	log.Printf("Wrote %d bytes", mw.BytesWritten())
}

// temporalMain measures temporal gaps from a membership file.
func temporalMain(con *io.TemporalConfig) {
	fg := setupIO(&con.SharedConfig)
	defer fg.Close()

	h, err := clustertomo.Track(
		con.Input, con.Particles, con.Snapshots, clustertomo.NumCores,
	)
	if err != nil {
		log.Fatal(err.Error())
	}
	log.Printf("Found %d gaps between %d contributing pairs of %d",
		h.Total(), h.Contributing, h.Pairs)

	if err := clustertomo.WriteTemporalTable(con.Output, h); err != nil {
		log.Fatal(err.Error())
	}
}
