package io

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/clustertomo/geom"
	"github.com/phil-mansfield/clustertomo/tomo"
)

func writeConfig(t *testing.T, text string) string {
	file := filepath.Join(t.TempDir(), "config.txt")
	require.NoError(t, os.WriteFile(file, []byte(text), 0644))
	return file
}

// uncomment turns every commented-out "Key = value" line of an example config
// into a live one.
func uncomment(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		body := strings.TrimPrefix(line, "# ")
		if body == line {
			continue
		}
		if kv := strings.SplitN(body, " = ", 2); len(kv) == 2 &&
			!strings.Contains(kv[0], " ") {
			lines[i] = body
		}
	}
	return strings.Join(lines, "\n")
}

func TestExampleConfigs(t *testing.T) {
	spatial, err := ReadSpatialConfig(writeConfig(t, ExampleSpatialFile))
	require.NoError(t, err)
	assert.Equal(t, 100.0, spatial.BoxWidth)

	sc, err := spatial.Scanner()
	require.NoError(t, err)
	assert.Equal(t, geom.Uniform(2, geom.Periodic), sc.Boundaries)
	assert.Equal(t, tomo.ClusterReturn, sc.Mode)
	assert.True(t, sc.ExcludeLargest)
	assert.Nil(t, sc.Axes)

	membership, err := ReadMembershipConfig(writeConfig(t, ExampleMembershipFile))
	require.NoError(t, err)
	assert.Equal(t, 2, membership.MinClusterParticles)
	assert.Equal(t, DefaultWidths, membership.Widths())

	temporal, err := ReadTemporalConfig(writeConfig(t, ExampleTemporalFile))
	require.NoError(t, err)
	assert.Equal(t, 1000, temporal.Particles)
	assert.Equal(t, -1, temporal.Snapshots)
}

func TestExampleConfigsOptional(t *testing.T) {
	spatial, err := ReadSpatialConfig(
		writeConfig(t, uncomment(ExampleSpatialFile)),
	)
	require.NoError(t, err)
	assert.Equal(t, "path/to/dump.%08d.txt", spatial.IteratedInput)
	assert.Equal(t, 100, spatial.IterationEnd)
	cols, err := spatial.ColumnIndices()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, cols)

	_, err = ReadMembershipConfig(writeConfig(t, uncomment(ExampleMembershipFile)))
	require.NoError(t, err)
	temporal, err := ReadTemporalConfig(
		writeConfig(t, uncomment(ExampleTemporalFile)),
	)
	require.NoError(t, err)
	assert.Equal(t, 100, temporal.Snapshots)
}

// spatialConfig builds a [Spatial] config file from a base set of valid
// fields, replacing or adding the given ones. Empty values remove a field.
func spatialConfig(fields map[string]string) string {
	base := map[string]string{
		"Input": "in.txt", "Output": "out",
		"BoxWidth": "10", "Dimension": "3", "Cells": "8",
	}
	for k, v := range fields {
		if v == "" {
			delete(base, k)
		} else {
			base[k] = v
		}
	}

	keys := []string{}
	for k := range base {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb := &strings.Builder{}
	sb.WriteString("[Spatial]\n")
	for _, k := range keys {
		fmt.Fprintf(sb, "%s = %s\n", k, base[k])
	}
	return sb.String()
}

func TestSpatialConfigCheck(t *testing.T) {
	table := []struct {
		fields map[string]string
		field  string
	}{
		{nil, ""},
		{map[string]string{"Cells": "8, 4, 2", "Boundary": "o"}, ""},
		{map[string]string{"Cells": "8, 4"}, "Cells"},
		{map[string]string{"Cells": "8, 4, 0"}, "Cells"},
		{map[string]string{"Cells": "8, x, 2"}, "Cells"},
		{map[string]string{"Boundary": "pp"}, "Boundary"},
		{map[string]string{"Boundary": "ppq"}, "Boundary"},
		{map[string]string{"Connectivity": "Edge"}, "Connectivity"},
		{map[string]string{"Columns": "0, 1"}, "Columns"},
		{map[string]string{"Columns": "0, 1, -2"}, "Columns"},
		{map[string]string{"GapMode": "Corners"}, "GapMode"},
		{map[string]string{"ScanAxes": "0, 3"}, "ScanAxes"},
		{map[string]string{"BoxWidth": "-1"}, "BoxWidth"},
		{map[string]string{"Dimension": "1", "Boundary": "p"}, "Dimension"},
		{map[string]string{"Input": ""}, "Input"},
		{map[string]string{
			"IteratedInput": "in.%d.txt", "IterationStep": "0",
		}, "IterationStep"},
		{map[string]string{
			"IteratedInput": "in.%d.txt",
			"IterationStart": "5", "IterationEnd": "2",
		}, "IterationEnd"},
	}

	for i, test := range table {
		_, err := ReadSpatialConfig(writeConfig(t, spatialConfig(test.fields)))
		if test.field == "" {
			if err != nil {
				t.Errorf("%d) Unexpected error: %s.", i, err)
			}
			continue
		}

		var ce *geom.ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("%d) Expected a ConfigError, got %v.", i, err)
		} else if ce.Field != test.field {
			t.Errorf("%d) Expected an error for '%s', got one for '%s'.",
				i, test.field, ce.Field)
		}
	}
}

func TestSnapshotConfigConversions(t *testing.T) {
	con := defaultSnapshotConfig()
	con.Dimension = 3
	con.Cells = "8, 4,2"
	con.Boundary = "pop"

	shape, err := con.Shape()
	require.NoError(t, err)
	assert.Equal(t, []int{8, 4, 2}, shape)

	bc, err := con.Boundaries()
	require.NoError(t, err)
	assert.Equal(t, geom.Boundaries{geom.Periodic, geom.Open, geom.Periodic}, bc)

	cols, err := con.ColumnIndices()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, cols)
}

func TestSnapshotFiles(t *testing.T) {
	dir := t.TempDir()
	pattern := filepath.Join(dir, "dump.%03d.txt")
	for _, i := range []int{0, 10, 20, 40} {
		file := fmt.Sprintf(pattern, i)
		require.NoError(t, os.WriteFile(file, []byte("0 0\n"), 0644))
	}

	con := defaultSnapshotConfig()
	con.IteratedInput = pattern
	con.IterationStep = 10

	files, snaps := con.SnapshotFiles()
	assert.Equal(t, []int{0, 10, 20}, snaps)
	assert.Len(t, files, 3)

	con.IterationEnd = 40
	files, snaps = con.SnapshotFiles()
	assert.Equal(t, []int{0, 10, 20, 30, 40}, snaps)
	assert.Equal(t, fmt.Sprintf(pattern, 30), files[3])

	con.IteratedInput = ""
	con.Input = "single.txt"
	files, snaps = con.SnapshotFiles()
	assert.Equal(t, []string{"single.txt"}, files)
	assert.Equal(t, []int{0}, snaps)
}

func TestTemporalConfigCheck(t *testing.T) {
	table := []struct {
		con   TemporalConfig
		field string
	}{
		{TemporalConfig{SharedConfig{"a", "b", "", ""}, 10, -1}, ""},
		{TemporalConfig{SharedConfig{"a", "b", "", ""}, 10, 5}, ""},
		{TemporalConfig{SharedConfig{"", "b", "", ""}, 10, -1}, "Input"},
		{TemporalConfig{SharedConfig{"a", "", "", ""}, 10, -1}, "Output"},
		{TemporalConfig{SharedConfig{"a", "b", "", ""}, 0, -1}, "Particles"},
		{TemporalConfig{SharedConfig{"a", "b", "", ""}, 10, 0}, "Snapshots"},
	}

	for i, test := range table {
		err := test.con.Check()
		var ce *geom.ConfigError
		if test.field == "" && err != nil {
			t.Errorf("%d) Unexpected error: %s.", i, err)
		} else if test.field != "" &&
			(!errors.As(err, &ce) || ce.Field != test.field) {
			t.Errorf("%d) Expected a ConfigError for '%s', got %v.",
				i, test.field, err)
		}
	}
}

func TestMembershipConfigCheck(t *testing.T) {
	wrap := DefaultMembershipWrapper()
	con := &wrap.Membership
	con.Input, con.Output = "in.txt", "out"
	con.BoxWidth, con.Dimension, con.Cells = 1, 2, "4"
	require.NoError(t, con.Check())

	con.IDBits = 24
	var ce *geom.ConfigError
	assert.ErrorAs(t, con.Check(), &ce)

	con.IDBits = 16
	con.MinClusterParticles = -1
	assert.ErrorAs(t, con.Check(), &ce)
}

func TestSpatialConfigGapMode(t *testing.T) {
	con, err := ReadSpatialConfig(writeConfig(t, spatialConfig(nil)))
	require.NoError(t, err)
	sc, err := con.Scanner()
	require.NoError(t, err)
	assert.Equal(t, tomo.ClusterReturn, sc.Mode)
	assert.True(t, sc.ExcludeLargest)

	con, err = ReadSpatialConfig(writeConfig(t, spatialConfig(map[string]string{
		"GapMode": "EmptyRuns", "ExcludeLargest": "false",
	})))
	require.NoError(t, err)
	sc, err = con.Scanner()
	require.NoError(t, err)
	assert.Equal(t, tomo.EmptyRuns, sc.Mode)
	assert.False(t, sc.ExcludeLargest)
}
