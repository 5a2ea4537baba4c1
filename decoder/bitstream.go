// Package decoder turns a PLL-recovered bit stream into container.SectorRecord
// values for MFM, FM, Commodore GCR, and Apple GCR encodings. Grounded on
// mfm/reader.go's IBM PC and Amiga sector scanners, generalized to operate
// on pll.State output (already-clocked bits) instead of a pre-clocked MFM
// byte array, and across the four encodings named in §4.F.
package decoder

import "floppy/fault"

// Encoding identifies which bit-cell encoding a Reader interprets.
type Encoding int

const (
	EncodingMFM Encoding = iota
	EncodingFM
	EncodingCommodoreGCR
	EncodingAppleGCR
)

// Reader scans a clocked bit stream (as produced by pll.State.NextBit, one
// call per bit) for sync marks and decodes bytes from it.
type Reader struct {
	bits   []bool
	pos    int
	encoding Encoding
}

// NewReader wraps a fully-recovered bit stream for one revolution.
func NewReader(bits []bool, encoding Encoding) *Reader {
	return &Reader{bits: bits, encoding: encoding}
}

// Done reports whether the stream is exhausted.
func (r *Reader) Done() bool { return r.pos >= len(r.bits) }

// readHalfBit returns the next raw channel bit (clock or data cell).
func (r *Reader) readHalfBit() (int, error) {
	if r.pos >= len(r.bits) {
		return -1, fault.New(fault.OutOfBounds, "decoder", nil)
	}
	b := 0
	if r.bits[r.pos] {
		b = 1
	}
	r.pos++
	return b, nil
}

// readBit returns the next DATA bit. For MFM the first channel bit of each
// pair (the clock cell) is discarded; FM keeps every channel bit. Any other
// encoding takes the MFM path. The Commodore and Apple GCR decoders do not
// call readBit; they read raw channel bits through readHalfBit.
func (r *Reader) readBit() (int, error) {
	if r.encoding == EncodingFM {
		return r.readHalfBit()
	}
	if _, err := r.readHalfBit(); err != nil {
		return -1, err
	}
	return r.readHalfBit()
}

// ReadByte reads 8 data bits MSB-first.
func (r *Reader) ReadByte() (byte, error) {
	var result byte
	for i := 0; i < 8; i++ {
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		result = (result << 1) | byte(bit)
	}
	return result, nil
}

// ReadBytes reads n data bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	out := make([]byte, n)
	for i := range out {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// ScanHistory advances bit-by-bit, folding each data bit into a rolling
// 32-bit history word, until history matches want or masked equals want
// under mask. Used to locate address/data marks the way scanIBMPC and
// scanAmiga do. A run of all-ones resyncs to the next half-bit boundary,
// matching the teacher's desync recovery.
func (r *Reader) ScanHistory(want, mask uint32) (uint32, error) {
	history := uint32(0)
	for {
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		history = (history << 1) | uint32(bit)
		if history == 0xffffffff {
			if _, err := r.readHalfBit(); err != nil {
				return 0, err
			}
			history = 0
			continue
		}
		if history&mask == want {
			return history, nil
		}
	}
}
