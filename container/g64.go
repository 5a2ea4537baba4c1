package container

import (
	"floppy/fault"
	"floppy/geometry"
	"floppy/ioprim"
)

const g64Signature = "GCR-1541"

// ParseG64 parses a G64 raw-GCR track image: an 8-byte signature, a version
// byte, track count, max track size, then two parallel 4-byte-little-endian
// offset tables (track data, speed zone), each with one entry per
// half-track slot.
func ParseG64(data []byte) (*Container, error) {
	cur := ioprim.NewCursor(data)
	sig, err := cur.Slice(0, 8)
	if err != nil || string(sig) != g64Signature {
		return nil, fault.New(fault.Format, "container/g64", nil)
	}
	numHalfTracks, err := cur.U8(9)
	if err != nil {
		return nil, fault.New(fault.Format, "container/g64", err)
	}

	g := geometry.Geometry{
		Cylinders: int(numHalfTracks) / 2, Heads: 1, SectorSize: 0, ZeroIndexed: false,
	}
	c := NewContainer(VariantG64, g)

	trackTableOff := 12
	for i := 0; i < int(numHalfTracks); i += 2 { // full tracks only; odd half-tracks skipped
		entryOff := trackTableOff + i*4
		offset, err := cur.U32LE(entryOff)
		if err != nil || offset == 0 {
			continue
		}
		trackLen, err := cur.U16LE(int(offset))
		if err != nil {
			return nil, fault.At(fault.Format, "container/g64", i/2+1, 0, err)
		}
		raw, err := cur.Slice(int(offset)+2, int(trackLen))
		if err != nil {
			return nil, fault.At(fault.Format, "container/g64", i/2+1, 0, err)
		}
		c.SetTrack(i/2+1, 0, &TrackImage{Bits: append([]byte{}, raw...)})
	}
	c.MarkClean()
	return c, nil
}

// WriteG64 serializes a Container back to a G64 image with fixed-size
// track slots sized to the largest populated track's GCR bitstream.
func WriteG64(c *Container) ([]byte, error) {
	maxTrack := c.Geometry.Cylinders
	maxLen := 0
	for t := 1; t <= maxTrack; t++ {
		if img := c.Track(t, 0); img != nil && len(img.Bits) > maxLen {
			maxLen = len(img.Bits)
		}
	}
	slotSize := maxLen + 2

	header := make([]byte, 12)
	copy(header, g64Signature)
	header[8] = 0
	header[9] = byte(maxTrack * 2)
	header[10] = byte(maxLen)
	header[11] = byte(maxLen >> 8)

	trackTable := make([]byte, maxTrack*2*4)
	speedTable := make([]byte, maxTrack*2*4)
	var body []byte
	cursor := uint32(12 + len(trackTable) + len(speedTable))

	for i := 0; i < maxTrack; i++ {
		img := c.Track(i+1, 0)
		if img == nil || len(img.Bits) == 0 {
			continue
		}
		entryOff := i * 2 * 4
		trackTable[entryOff] = byte(cursor)
		trackTable[entryOff+1] = byte(cursor >> 8)
		trackTable[entryOff+2] = byte(cursor >> 16)
		trackTable[entryOff+3] = byte(cursor >> 24)

		slot := make([]byte, slotSize)
		slot[0] = byte(len(img.Bits))
		slot[1] = byte(len(img.Bits) >> 8)
		copy(slot[2:], img.Bits)
		body = append(body, slot...)
		cursor += uint32(slotSize)
	}

	out := append(append([]byte{}, header...), trackTable...)
	out = append(out, speedTable...)
	out = append(out, body...)
	return out, nil
}
