package container

import (
	"floppy/fault"
	"floppy/geometry"
	"floppy/ioprim"
)

// HFE v1/v3 constants. Grounded on hfe/hfe.go and hfe/imageformat.go: the
// signatures, block size, and track-encoding byte values are carried over
// unchanged; the opcode-walking v3 track body and write.go's encoder are
// reproduced here rather than split across separate read.go/write.go files.
const (
	hfeV1Signature = "HXCPICFE"
	hfeV3Signature = "HXCHFEV3"
	hfeBlockSize   = 512
)

const (
	hfeEncISOIBMMFM = iota
	hfeEncAmigaMFM
	hfeEncISOIBMFM
	hfeEncEmuFM
)

const (
	hfeOpcodeMask     = 0xF0
	hfeOpcodeNop      = 0xF0
	hfeOpcodeSetIndex = 0xF1
	hfeOpcodeSetRate  = 0xF2
	hfeOpcodeSkipBits = 0xF3
	hfeOpcodeRand     = 0xF4
)

// byteBitsInverter flips bit order within a byte; HFE stores each track
// byte LSB-first for PIC EUSART compatibility, opposite of the MSB-first
// convention package decoder expects.
var byteBitsInverter = buildBitsInverter()

func buildBitsInverter() [256]byte {
	var table [256]byte
	for i := 0; i < 256; i++ {
		var inverted byte
		for j := 0; j < 8; j++ {
			if i&(1<<uint(j)) != 0 {
				inverted |= 1 << uint(7-j)
			}
		}
		table[i] = inverted
	}
	return table
}

// ParseHFE parses an HFE v1 or v3 image into a Container. Track bitstreams
// are de-interleaved per side and bit-reversed into MSB-first order, ready
// for package decoder.
func ParseHFE(data []byte) (*Container, error) {
	cur := ioprim.NewCursor(data)
	sig, err := cur.Slice(0, 8)
	if err != nil {
		return nil, fault.New(fault.Format, "container/hfe", err)
	}
	switch string(sig) {
	case hfeV1Signature, hfeV3Signature:
	default:
		return nil, fault.New(fault.Format, "container/hfe", nil)
	}

	numTracks, err := cur.U8(9)
	if err != nil {
		return nil, fault.New(fault.Format, "container/hfe", err)
	}
	numSides, err := cur.U8(10)
	if err != nil {
		return nil, fault.New(fault.Format, "container/hfe", err)
	}
	trackListOffsetBlocks, err := cur.U16LE(13)
	if err != nil {
		return nil, fault.New(fault.Format, "container/hfe", err)
	}

	g := geometry.Geometry{
		Cylinders: int(numTracks), Heads: int(numSides),
		SectorsPerTrack: 0, SectorSize: 512, ZeroIndexed: true,
	}
	c := NewContainer(VariantHFE, g)

	trackListOff := int(trackListOffsetBlocks) * hfeBlockSize
	for t := 0; t < int(numTracks); t++ {
		entryOff := trackListOff + t*4
		offsetBlocks, err := cur.U16LE(entryOff)
		if err != nil {
			return nil, fault.At(fault.Format, "container/hfe", t, 0, err)
		}
		trackLen, err := cur.U16LE(entryOff + 2)
		if err != nil {
			return nil, fault.At(fault.Format, "container/hfe", t, 0, err)
		}

		raw, err := cur.Slice(int(offsetBlocks)*hfeBlockSize, int(trackLen))
		if err != nil {
			return nil, fault.At(fault.Format, "container/hfe", t, 0, err)
		}
		side0, side1 := deinterleaveHFETrack(raw)

		c.SetTrack(t, 0, &TrackImage{Bits: bitReverseCopy(side0)})
		if numSides > 1 {
			c.SetTrack(t, 1, &TrackImage{Bits: bitReverseCopy(side1)})
		}
	}
	c.MarkClean()
	return c, nil
}

// deinterleaveHFETrack splits an HFE track body into its two 256-byte-block
// interleaved sides. HFE interleaves side 0 and side 1 in alternating
// 256-byte chunks within each 512-byte block.
func deinterleaveHFETrack(raw []byte) (side0, side1 []byte) {
	for off := 0; off+256 <= len(raw); off += 256 {
		if (off/256)%2 == 0 {
			side0 = append(side0, raw[off:off+256]...)
		} else {
			side1 = append(side1, raw[off:off+256]...)
		}
	}
	return side0, side1
}

func bitReverseCopy(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = byteBitsInverter[b]
	}
	return out
}

// WriteHFE serializes a Container back to HFE v1 bytes. A side whose track
// is absent or has nil Bits is written as zero-filled blocks. ParseHFE reads
// the same per-side bitstreams back (padded to whole 256-byte chunks); the
// header keeps only the signature, track count, side count and encoding, so
// the output is not byte-identical to an original v3 or fully populated v1
// file.
func WriteHFE(c *Container) ([]byte, error) {
	header := make([]byte, hfeBlockSize)
	copy(header, hfeV1Signature)
	header[8] = 0 // format revision
	header[9] = byte(c.Geometry.Cylinders)
	header[10] = byte(c.Geometry.Heads)
	header[11] = hfeEncISOIBMMFM
	header[13] = 1 // track list at block 1

	var body []byte
	type offsetEntry struct{ offsetBlocks, length uint16 }
	entries := make([]offsetEntry, c.Geometry.Cylinders)

	blockCursor := uint16(2)
	for t := 0; t < c.Geometry.Cylinders; t++ {
		side0 := trackBitsOrEmpty(c, t, 0)
		side1 := trackBitsOrEmpty(c, t, 1)
		interleaved := interleaveHFETrack(bitReverseCopy(side0), bitReverseCopy(side1))

		entries[t] = offsetEntry{offsetBlocks: blockCursor, length: uint16(len(interleaved))}
		body = append(body, interleaved...)
		blocksUsed := (len(interleaved) + hfeBlockSize - 1) / hfeBlockSize
		if pad := blocksUsed*hfeBlockSize - len(interleaved); pad > 0 {
			body = append(body, make([]byte, pad)...)
		}
		blockCursor += uint16(blocksUsed)
	}

	trackList := make([]byte, hfeBlockSize)
	for t, e := range entries {
		trackList[t*4] = byte(e.offsetBlocks)
		trackList[t*4+1] = byte(e.offsetBlocks >> 8)
		trackList[t*4+2] = byte(e.length)
		trackList[t*4+3] = byte(e.length >> 8)
	}

	out := append(append([]byte{}, header...), trackList...)
	out = append(out, body...)
	return out, nil
}

func trackBitsOrEmpty(c *Container, cyl, head int) []byte {
	img := c.Track(cyl, head)
	if img == nil {
		return nil
	}
	return img.Bits
}

func interleaveHFETrack(side0, side1 []byte) []byte {
	var out []byte
	n := len(side0)
	if len(side1) > n {
		n = len(side1)
	}
	for off := 0; off < n; off += 256 {
		out = append(out, padTo(side0, off, 256)...)
		out = append(out, padTo(side1, off, 256)...)
	}
	return out
}

func padTo(data []byte, off, n int) []byte {
	chunk := make([]byte, n)
	if off < len(data) {
		copy(chunk, data[off:])
	}
	return chunk
}
