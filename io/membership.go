package io

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/phil-mansfield/clustertomo/cluster"
)

// MembershipHeader is the fixed header at the start of a membership file,
// after the endianness flag and header size.
type MembershipHeader struct {
	IndexBits, CountBits, IDBits, LabelBits int32
}

func (hd *MembershipHeader) widths() Widths {
	return Widths{
		int(hd.IndexBits), int(hd.CountBits), int(hd.IDBits), int(hd.LabelBits),
	}
}

// Block holds the membership records of one snapshot. Labels maps particle
// ID to cluster label; particles which belong to no cluster are absent.
type Block struct {
	Snapshot int
	Labels   map[int]int
}

// FormatError is returned when a membership file does not follow the
// expected layout.
type FormatError struct {
	Offset int64
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("membership format error at byte %d: %s", e.Offset, e.Msg)
}

// MembershipWriter appends snapshot blocks to a membership file.
type MembershipWriter struct {
	w      io.Writer
	order  binary.ByteOrder
	widths Widths
	buf    []byte
	last   int
	n      int64
}

// NewMembershipWriter writes the file header to w and returns a writer for
// the blocks which follow it.
func NewMembershipWriter(
	w io.Writer, widths Widths, order binary.ByteOrder,
) (*MembershipWriter, error) {
	if err := widths.Validate(); err != nil {
		return nil, err
	}

	hd := MembershipHeader{
		int32(widths.Index), int32(widths.Count),
		int32(widths.ID), int32(widths.Label),
	}
	if err := binary.Write(w, order, endiannessFlag(order)); err != nil {
		return nil, err
	}
	if err := binary.Write(w, order, int32(unsafe.Sizeof(hd))); err != nil {
		return nil, err
	}
	if err := binary.Write(w, order, &hd); err != nil {
		return nil, err
	}

	return &MembershipWriter{
		w: w, order: order, widths: widths, last: -1,
		n: 8 + int64(unsafe.Sizeof(hd)),
	}, nil
}

// WriteBlock encodes the members of snapshot snap and writes them as a
// single block. Snapshot indices must strictly increase between calls. No
// bytes are written if any value does not fit its field.
func (mw *MembershipWriter) WriteBlock(snap int, ms []cluster.Member) error {
	if snap <= mw.last {
		return fmt.Errorf(
			"snapshot %d written after snapshot %d", snap, mw.last,
		)
	}

	wd := mw.widths
	if err := checkValue("snapshot index", snap, wd.Index); err != nil {
		return err
	}
	if err := checkValue("record count", len(ms), wd.Count); err != nil {
		return err
	}
	for _, m := range ms {
		if err := checkValue("particle ID", m.ID, wd.ID); err != nil {
			return err
		}
		if err := checkValue("cluster label", m.Label, wd.Label); err != nil {
			return err
		}
	}

	size := wd.blockHeaderBytes() + len(ms)*wd.recordBytes()
	if cap(mw.buf) < size {
		mw.buf = make([]byte, size)
	}
	mw.buf = mw.buf[:size]

	b := putUint(mw.buf, mw.order, wd.Index, uint64(snap))
	b = putUint(b, mw.order, wd.Count, uint64(len(ms)))
	for _, m := range ms {
		b = putUint(b, mw.order, wd.ID, uint64(m.ID))
		b = putUint(b, mw.order, wd.Label, uint64(m.Label))
	}

	if _, err := mw.w.Write(mw.buf); err != nil {
		return err
	}
	mw.last = snap
	mw.n += int64(size)
	return nil
}

// BytesWritten returns the number of bytes written so far, header included.
func (mw *MembershipWriter) BytesWritten() int64 { return mw.n }

func checkValue(name string, v, bits int) error {
	if v < 0 {
		return fmt.Errorf("%s %d is negative", name, v)
	} else if uint64(v) > MaxValue(bits) {
		return fmt.Errorf(
			"%s %d does not fit in %d bits (max %d)", name, v, bits, MaxValue(bits),
		)
	}
	return nil
}

// recordChunk is the number of records decoded per read, which bounds the
// memory spent on a block whose declared count is corrupt.
const recordChunk = 1 << 12

// MembershipReader decodes the blocks of a membership file in order.
type MembershipReader struct {
	r      io.Reader
	order  binary.ByteOrder
	widths Widths
	buf    []byte
	offset int64
}

// NewMembershipReader reads the file header from r.
func NewMembershipReader(r io.Reader) (*MembershipReader, error) {
	mr := &MembershipReader{r: r}

	flagBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, flagBuf); err != nil {
		return nil, &FormatError{0, "file too short for a header"}
	}
	// Both supported flag values read the same in either byte order.
	order, err := endianness(int32(binary.LittleEndian.Uint32(flagBuf)))
	if err != nil {
		return nil, &FormatError{0, err.Error()}
	}
	mr.order = order

	hdSize, err := readInt32(r, order)
	if err != nil {
		return nil, &FormatError{4, "file too short for a header"}
	}
	hd := MembershipHeader{}
	if hdSize != int32(unsafe.Sizeof(hd)) {
		return nil, &FormatError{4, fmt.Sprintf(
			"expected header size %d, got %d", unsafe.Sizeof(hd), hdSize,
		)}
	}
	if err := binary.Read(r, order, &hd); err != nil {
		return nil, &FormatError{8, "file too short for a header"}
	}

	mr.widths = hd.widths()
	if err := mr.widths.Validate(); err != nil {
		return nil, &FormatError{8, err.Error()}
	}
	mr.offset = 8 + int64(hdSize)
	return mr, nil
}

// Widths returns the field widths declared in the file header.
func (mr *MembershipReader) Widths() Widths { return mr.widths }

// Next decodes the next block. It returns io.EOF if the file ends exactly at
// a block boundary and a *FormatError if a block is truncated or repeats a
// particle ID.
func (mr *MembershipReader) Next() (*Block, error) {
	wd := mr.widths
	start := mr.offset

	hdBytes := wd.blockHeaderBytes()
	buf := mr.buffer(hdBytes)
	n, err := io.ReadFull(mr.r, buf)
	mr.offset += int64(n)
	if err == io.EOF {
		return nil, io.EOF
	} else if err == io.ErrUnexpectedEOF {
		return nil, &FormatError{start, fmt.Sprintf(
			"block header needs %d bytes, but only %d remain", hdBytes, n,
		)}
	} else if err != nil {
		return nil, err
	}

	snap, rest := getUint(buf, mr.order, wd.Index)
	count, _ := getUint(rest, mr.order, wd.Count)
	if snap > uint64(maxInt) || count > uint64(maxInt) {
		return nil, &FormatError{start, fmt.Sprintf(
			"snapshot %d with %d records is out of range", snap, count,
		)}
	}

	block := &Block{Snapshot: int(snap), Labels: map[int]int{}}
	recBytes := wd.recordBytes()
	read := 0
	for read < int(count) {
		chunk := int(count) - read
		if chunk > recordChunk {
			chunk = recordChunk
		}

		buf = mr.buffer(chunk * recBytes)
		n, err := io.ReadFull(mr.r, buf)
		mr.offset += int64(n)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			avail := read*recBytes + n
			return nil, &FormatError{start, fmt.Sprintf(
				"snapshot %d declares %d records (%d bytes), but only %d "+
					"bytes remain", snap, count, int(count)*recBytes, avail,
			)}
		} else if err != nil {
			return nil, err
		}

		for i := 0; i < chunk; i++ {
			var id, label uint64
			id, buf = getUint(buf, mr.order, wd.ID)
			label, buf = getUint(buf, mr.order, wd.Label)
			if id > uint64(maxInt) || label > uint64(maxInt) {
				return nil, &FormatError{start, fmt.Sprintf(
					"record (%d, %d) of snapshot %d is out of range",
					id, label, snap,
				)}
			}
			if _, ok := block.Labels[int(id)]; ok {
				return nil, &FormatError{start, fmt.Sprintf(
					"particle %d appears twice in snapshot %d", id, snap,
				)}
			}
			block.Labels[int(id)] = int(label)
		}
		read += chunk
	}

	return block, nil
}

const maxInt = int(^uint(0) >> 1)

func (mr *MembershipReader) buffer(n int) []byte {
	if cap(mr.buf) < n {
		mr.buf = make([]byte, n)
	}
	return mr.buf[:n]
}

// MembershipFile is a MembershipReader over a file on disk which can be
// restarted from its first block.
type MembershipFile struct {
	*MembershipReader
	f *os.File
}

// OpenMembership opens the membership file at path and reads its header.
func OpenMembership(path string) (*MembershipFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	mf := &MembershipFile{f: f}
	if err := mf.reset(); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading '%s': %w", path, err)
	}
	return mf, nil
}

// Rewind restarts reading from the first block.
func (mf *MembershipFile) Rewind() error {
	if _, err := mf.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return mf.reset()
}

func (mf *MembershipFile) reset() error {
	mr, err := NewMembershipReader(bufio.NewReader(mf.f))
	if err != nil {
		return err
	}
	mf.MembershipReader = mr
	return nil
}

// Close closes the underlying file.
func (mf *MembershipFile) Close() error { return mf.f.Close() }
