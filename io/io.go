package io

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/phil-mansfield/clustertomo/geom"
)

// endianness is a utility function converting an endianness flag to a
// byte order.
func endianness(flag int32) (binary.ByteOrder, error) {
	switch flag {
	case 0:
		return binary.LittleEndian, nil
	case -1:
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("unrecognized endianness flag %d", flag)
}

// endiannessFlag is the inverse of endianness.
func endiannessFlag(order binary.ByteOrder) int32 {
	if order == binary.BigEndian {
		return -1
	}
	return 0
}

// readInt32 returns single 32-bit interger from the given reader using the
// given endianness.
func readInt32(r io.Reader, order binary.ByteOrder) (int32, error) {
	var n int32
	err := binary.Read(r, order, &n)
	return n, err
}

// Widths gives the size in bits of each fixed-width field of a membership
// file. Every field is stored unsigned, so a field of b bits holds values up
// to MaxValue(b):
//
//	 8 bits: 255
//	16 bits: 65,535
//	32 bits: 4,294,967,295
//	64 bits: 18,446,744,073,709,551,615
//
// Index holds snapshot indices, Count the number of records in a block, ID
// particle IDs and Label cluster labels.
type Widths struct {
	Index, Count, ID, Label int
}

// DefaultWidths uses 32 bits for every field.
var DefaultWidths = Widths{32, 32, 32, 32}

// MaxValue returns the largest value a field of the given width can hold.
func MaxValue(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(bits) - 1
}

// Validate returns an error if any width is not 8, 16, 32 or 64.
func (w Widths) Validate() error {
	fields := []struct {
		name string
		bits int
	}{
		{"IndexBits", w.Index}, {"CountBits", w.Count},
		{"IDBits", w.ID}, {"LabelBits", w.Label},
	}
	for _, f := range fields {
		switch f.bits {
		case 8, 16, 32, 64:
		default:
			return &geom.ConfigError{
				Field: f.name,
				Msg:   fmt.Sprintf("must be one of [8 | 16 | 32 | 64], got %d", f.bits),
			}
		}
	}
	return nil
}

// Check returns a ConfigError if the widths cannot represent a run with the
// given largest snapshot index, largest per-snapshot record count, largest
// particle ID and largest cluster label. Call it once before a run starts.
func (w Widths) Check(maxIndex, maxCount, maxID, maxLabel int) error {
	if err := w.Validate(); err != nil {
		return err
	}

	fields := []struct {
		name string
		bits int
		max  int
	}{
		{"IndexBits", w.Index, maxIndex}, {"CountBits", w.Count, maxCount},
		{"IDBits", w.ID, maxID}, {"LabelBits", w.Label, maxLabel},
	}
	for _, f := range fields {
		if f.max < 0 {
			return &geom.ConfigError{
				Field: f.name, Msg: fmt.Sprintf("maximum value %d is negative", f.max),
			}
		} else if uint64(f.max) > MaxValue(f.bits) {
			return &geom.ConfigError{
				Field: f.name,
				Msg: fmt.Sprintf("%d bits hold values up to %d, but the run needs %d",
					f.bits, MaxValue(f.bits), f.max),
			}
		}
	}
	return nil
}

func (w Widths) recordBytes() int { return (w.ID + w.Label) / 8 }
func (w Widths) blockHeaderBytes() int { return (w.Index + w.Count) / 8 }

// putUint writes v into buf using bits/8 bytes and returns the rest of buf.
func putUint(buf []byte, order binary.ByteOrder, bits int, v uint64) []byte {
	switch bits {
	case 8:
		buf[0] = byte(v)
	case 16:
		order.PutUint16(buf, uint16(v))
	case 32:
		order.PutUint32(buf, uint32(v))
	case 64:
		order.PutUint64(buf, v)
	}
	return buf[bits/8:]
}

// getUint reads a bits-wide value from the front of buf.
func getUint(buf []byte, order binary.ByteOrder, bits int) (uint64, []byte) {
	var v uint64
	switch bits {
	case 8:
		v = uint64(buf[0])
	case 16:
		v = uint64(order.Uint16(buf))
	case 32:
		v = uint64(order.Uint32(buf))
	case 64:
		v = order.Uint64(buf)
	}
	return v, buf[bits/8:]
}
