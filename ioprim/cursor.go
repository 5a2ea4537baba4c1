// Package ioprim provides the checked byte-access and buffered-I/O
// primitives every container parser and flux decoder builds on. No parser
// in this module performs `offset + len` arithmetic directly against
// attacker-influenced input; every offset is produced by CheckedAdd/
// CheckedMul and re-validated against a Cursor's length before use.
package ioprim

import (
	"encoding/binary"
	"floppy/fault"
)

// Cursor is an immutable view over a byte slice: a fixed backing buffer and
// an absolute length. It never advances an internal position on read - every
// read takes an explicit offset, so concurrent readers of one Cursor are
// always safe. Containers that need a moving position keep their own offset
// variable and re-check it against Len() before each read.
type Cursor struct {
	buf []byte
}

// NewCursor wraps buf for checked access. The slice is not copied.
func NewCursor(buf []byte) Cursor {
	return Cursor{buf: buf}
}

// Len returns the absolute length of the underlying buffer.
func (c Cursor) Len() int { return len(c.buf) }

// Bytes returns the whole backing slice (zero-copy). Callers must not
// mutate it; Cursor promises an immutable view.
func (c Cursor) Bytes() []byte { return c.buf }

func (c Cursor) checkRange(offset, n int) error {
	if offset < 0 || n < 0 {
		return fault.New(fault.OutOfBounds, "ioprim", nil)
	}
	end, err := CheckedAdd(uint64(offset), uint64(n))
	if err != nil {
		return fault.New(fault.Overflow, "ioprim", err)
	}
	if end > uint64(len(c.buf)) {
		return fault.New(fault.OutOfBounds, "ioprim", nil)
	}
	return nil
}

// Slice returns a zero-copy sub-slice [offset, offset+n), bounds-checked via
// a prior checked-add against the cursor's absolute length.
func (c Cursor) Slice(offset, n int) ([]byte, error) {
	if err := c.checkRange(offset, n); err != nil {
		return nil, err
	}
	return c.buf[offset : offset+n], nil
}

// U8 reads one byte at offset.
func (c Cursor) U8(offset int) (byte, error) {
	b, err := c.Slice(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16LE reads a little-endian uint16 at offset.
func (c Cursor) U16LE(offset int) (uint16, error) {
	b, err := c.Slice(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U16BE reads a big-endian uint16 at offset.
func (c Cursor) U16BE(offset int) (uint16, error) {
	b, err := c.Slice(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// U32LE reads a little-endian uint32 at offset.
func (c Cursor) U32LE(offset int) (uint32, error) {
	b, err := c.Slice(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U32BE reads a big-endian uint32 at offset.
func (c Cursor) U32BE(offset int) (uint32, error) {
	b, err := c.Slice(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// U64LE reads a little-endian uint64 at offset.
func (c Cursor) U64LE(offset int) (uint64, error) {
	b, err := c.Slice(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
