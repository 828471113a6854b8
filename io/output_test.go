package io

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTable(t *testing.T) {
	buf := &bytes.Buffer{}
	err := WriteTable(buf, []string{"Column 0: s", "Column 1: g(s)"},
		[][]float64{{1, 2, 3}, {0.5, 0.25, 0}})
	require.NoError(t, err)

	assert.Equal(t,
		"# Column 0: s\n# Column 1: g(s)\n1\t0.5\n2\t0.25\n3\t0\n", buf.String())

	err = WriteTable(&bytes.Buffer{}, nil, [][]float64{{1, 2}, {1}})
	assert.Error(t, err)
}

func TestWriteRows(t *testing.T) {
	buf := &bytes.Buffer{}
	err := WriteRows(buf, []string{"rows"}, [][]float64{{0, 1.5}, {}, {2}})
	require.NoError(t, err)
	assert.Equal(t, "# rows\n0\t1.5\n\n2\n", buf.String())
}

func TestReadPositions(t *testing.T) {
	file := filepath.Join(t.TempDir(), "snap.txt")
	text := "0 0.5 1.5\n1 2.5 3.5\n2 9.0 0.0\n"
	require.NoError(t, os.WriteFile(file, []byte(text), 0644))

	pos, err := ReadPositions(file, []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 1.5}, {2.5, 3.5}, {9, 0}}, pos)

	pos, err = ReadPositions(file, []int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{3.5, 1}, pos[1])

	_, err = ReadPositions(filepath.Join(t.TempDir(), "missing.txt"),
		[]int{0, 1})
	assert.Error(t, err)
}

func TestWriteTableFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), CornerTable)
	require.NoError(t, WriteTableFile(file, nil, [][]float64{{1}, {0.25}}))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "1\t0.25\n", string(data))
}
