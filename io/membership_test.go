package io

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/clustertomo/cluster"
	"github.com/phil-mansfield/clustertomo/geom"
)

type snapshot struct {
	snap    int
	members []cluster.Member
}

var testRun = []snapshot{
	{0, []cluster.Member{{0, 0}, {1, 0}, {3, 1}, {4, 1}}},
	// Particle 2 is never in a cluster, particle 4 leaves one.
	{1, []cluster.Member{{0, 0}, {1, 0}, {3, 0}}},
	{5, []cluster.Member{}},
	{7, []cluster.Member{{4, 2}, {1, 2}, {200, 0}}},
}

func writeRun(
	t *testing.T, w io.Writer, widths Widths, order binary.ByteOrder,
) *MembershipWriter {
	mw, err := NewMembershipWriter(w, widths, order)
	require.NoError(t, err)
	for _, s := range testRun {
		require.NoError(t, mw.WriteBlock(s.snap, s.members))
	}
	return mw
}

func expectedBlock(s snapshot) *Block {
	b := &Block{Snapshot: s.snap, Labels: map[int]int{}}
	for _, m := range s.members {
		b.Labels[m.ID] = m.Label
	}
	return b
}

func readRun(t *testing.T, mr *MembershipReader) []*Block {
	blocks := []*Block{}
	for {
		b, err := mr.Next()
		if err == io.EOF {
			return blocks
		}
		require.NoError(t, err)
		blocks = append(blocks, b)
	}
}

func TestMembershipRoundTrip(t *testing.T) {
	table := []struct {
		widths Widths
		order  binary.ByteOrder
	}{
		{DefaultWidths, binary.LittleEndian},
		{DefaultWidths, binary.BigEndian},
		{Widths{8, 8, 16, 8}, binary.LittleEndian},
		{Widths{64, 16, 64, 32}, binary.BigEndian},
	}

	want := []*Block{}
	for _, s := range testRun {
		want = append(want, expectedBlock(s))
	}

	for i, test := range table {
		buf := &bytes.Buffer{}
		mw := writeRun(t, buf, test.widths, test.order)
		if mw.BytesWritten() != int64(buf.Len()) {
			t.Errorf("%d) BytesWritten = %d, but buffer has %d bytes.",
				i, mw.BytesWritten(), buf.Len())
		}

		mr, err := NewMembershipReader(buf)
		require.NoError(t, err)
		assert.Equal(t, test.widths, mr.Widths())

		if diff := cmp.Diff(want, readRun(t, mr)); diff != "" {
			t.Errorf("%d) Blocks mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestMembershipSize(t *testing.T) {
	buf := &bytes.Buffer{}
	w := Widths{16, 8, 32, 8}
	mw, err := NewMembershipWriter(buf, w, binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, 24, buf.Len())

	require.NoError(t, mw.WriteBlock(3, []cluster.Member{{1, 2}, {5, 2}}))
	assert.Equal(t, 24+3+2*5, buf.Len())
}

func TestMembershipWriteErrors(t *testing.T) {
	mw, err := NewMembershipWriter(&bytes.Buffer{}, Widths{8, 8, 8, 8},
		binary.LittleEndian)
	require.NoError(t, err)

	assert.Error(t, mw.WriteBlock(256, nil))
	assert.Error(t, mw.WriteBlock(0, []cluster.Member{{256, 0}}))
	assert.Error(t, mw.WriteBlock(0, []cluster.Member{{0, 300}}))
	assert.Error(t, mw.WriteBlock(0, []cluster.Member{{-1, 0}}))
	assert.Equal(t, int64(24), mw.BytesWritten())

	require.NoError(t, mw.WriteBlock(4, nil))
	assert.Error(t, mw.WriteBlock(4, nil))
	assert.Error(t, mw.WriteBlock(2, nil))
	require.NoError(t, mw.WriteBlock(5, nil))

	ms := make([]cluster.Member, 256)
	for i := range ms {
		ms[i] = cluster.Member{ID: i % 200}
	}
	assert.Error(t, mw.WriteBlock(6, ms))

	_, err = NewMembershipWriter(&bytes.Buffer{}, Widths{8, 12, 8, 8},
		binary.LittleEndian)
	var ce *geom.ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestMembershipTruncated(t *testing.T) {
	buf := &bytes.Buffer{}
	writeRun(t, buf, DefaultWidths, binary.LittleEndian)
	data := buf.Bytes()

	// The first block ends at byte 24 + 8 + 4*8.
	firstEnd := 24 + 8 + 4*8
	table := []struct {
		n      int
		blocks int
	}{
		{firstEnd - 1, 0},
		{firstEnd + 3, 1},
		{firstEnd + 8 + 8 + 5, 1},
		{len(data) - 1, 3},
	}

	for i, test := range table {
		mr, err := NewMembershipReader(bytes.NewReader(data[:test.n]))
		require.NoError(t, err)

		for b := 0; b < test.blocks; b++ {
			_, err := mr.Next()
			require.NoError(t, err)
		}
		_, err = mr.Next()
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("%d) Expected a FormatError, got %v.", i, err)
		}
	}

	for _, n := range []int{0, 3, 7, 12, 23} {
		_, err := NewMembershipReader(bytes.NewReader(data[:n]))
		var fe *FormatError
		assert.ErrorAs(t, err, &fe, "header truncated to %d bytes", n)
	}
}

// A corrupt count must be reported as truncation rather than allocated.
func TestMembershipCorruptCount(t *testing.T) {
	buf := &bytes.Buffer{}
	mw, err := NewMembershipWriter(buf, DefaultWidths, binary.LittleEndian)
	require.NoError(t, err)
	require.NoError(t, mw.WriteBlock(0, []cluster.Member{{1, 1}}))

	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[24+4:], 0xffffffff)

	mr, err := NewMembershipReader(bytes.NewReader(data))
	require.NoError(t, err)
	_, err = mr.Next()
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, int64(24), fe.Offset)
}

func TestMembershipDuplicateID(t *testing.T) {
	buf := &bytes.Buffer{}
	mw, err := NewMembershipWriter(buf, DefaultWidths, binary.BigEndian)
	require.NoError(t, err)
	require.NoError(t, mw.WriteBlock(0, []cluster.Member{{1, 1}, {1, 2}}))

	mr, err := NewMembershipReader(buf)
	require.NoError(t, err)
	_, err = mr.Next()
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestMembershipBadHeader(t *testing.T) {
	buf := &bytes.Buffer{}
	writeRun(t, buf, DefaultWidths, binary.LittleEndian)
	good := buf.Bytes()

	table := []struct {
		offset int
		value  uint32
	}{
		{0, 7},  // endianness flag
		{4, 12}, // header size
		{8, 24}, // IndexBits
	}

	for i, test := range table {
		data := append([]byte{}, good...)
		binary.LittleEndian.PutUint32(data[test.offset:], test.value)
		_, err := NewMembershipReader(bytes.NewReader(data))
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("%d) Expected a FormatError, got %v.", i, err)
		}
	}
}

func TestOpenMembershipRewind(t *testing.T) {
	path := filepath.Join(t.TempDir(), MembershipFile)
	f, err := os.Create(path)
	require.NoError(t, err)
	writeRun(t, f, DefaultWidths, binary.LittleEndian)
	require.NoError(t, f.Close())

	mf, err := OpenMembership(path)
	require.NoError(t, err)
	defer mf.Close()

	first := readRun(t, mf.MembershipReader)
	assert.Len(t, first, len(testRun))

	require.NoError(t, mf.Rewind())
	second := readRun(t, mf.MembershipReader)
	assert.Equal(t, first, second)

	_, err = OpenMembership(filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}

func TestWidthsCheck(t *testing.T) {
	table := []struct {
		w                                  Widths
		maxIndex, maxCount, maxID, maxLabel int
		valid                              bool
	}{
		{DefaultWidths, 100, 1000, 1000, 1000, true},
		{Widths{8, 8, 8, 8}, 255, 255, 255, 255, true},
		{Widths{8, 8, 8, 8}, 256, 255, 255, 255, false},
		{Widths{8, 8, 8, 8}, 0, 0, 256, 0, false},
		{Widths{8, 16, 16, 8}, 0, 65535, 65535, 300, false},
		{Widths{64, 64, 64, 64}, maxInt, maxInt, maxInt, maxInt, true},
		{Widths{8, 8, 8, 7}, 0, 0, 0, 0, false},
		{DefaultWidths, -1, 0, 0, 0, false},
	}

	for i, test := range table {
		err := test.w.Check(test.maxIndex, test.maxCount, test.maxID, test.maxLabel)
		if test.valid && err != nil {
			t.Errorf("%d) Unexpected error: %s.", i, err)
		} else if !test.valid {
			var ce *geom.ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("%d) Expected a ConfigError, got %v.", i, err)
			}
		}
	}

	assert.Equal(t, uint64(255), MaxValue(8))
	assert.Equal(t, uint64(4294967295), MaxValue(32))
	assert.Equal(t, ^uint64(0), MaxValue(64))
}
