package container

import (
	"floppy/fault"
	"floppy/geometry"
	"floppy/ioprim"
)

const t64HeaderSize = 64
const t64EntrySize = 32

// ParseT64 parses a T64 tape archive: a 64-byte header (signature, version,
// max entries, used entries, name) followed by one 32-byte directory entry
// per archived program, each carrying a start/end address pair and a data
// offset into the file. T64 has no track/sector geometry of its own; it is
// modeled here as a single-track container whose "sectors" are archive
// entries addressed by entry index.
func ParseT64(data []byte) (*Container, error) {
	cur := ioprim.NewCursor(data)
	sig, err := cur.Slice(0, 32)
	if err != nil {
		return nil, fault.New(fault.Format, "container/t64", err)
	}
	if !t64SignatureValid(sig) {
		return nil, fault.New(fault.Format, "container/t64", nil)
	}

	usedEntries, err := cur.U16LE(36)
	if err != nil {
		return nil, fault.New(fault.Format, "container/t64", err)
	}

	g := geometry.Geometry{Cylinders: 1, Heads: 1, SectorSize: 0, ZeroIndexed: true}
	c := NewContainer(VariantT64, g)

	var sectors []SectorRecord
	for i := 0; i < int(usedEntries); i++ {
		entryOff := t64HeaderSize + i*t64EntrySize
		entryType, err := cur.U8(entryOff)
		if err != nil {
			return nil, fault.At(fault.Format, "container/t64", 0, 0, err)
		}
		if entryType == 0 {
			continue // free slot
		}
		startAddr, err := cur.U16LE(entryOff + 2)
		if err != nil {
			return nil, fault.At(fault.Format, "container/t64", 0, 0, err)
		}
		endAddr, err := cur.U16LE(entryOff + 4)
		if err != nil {
			return nil, fault.At(fault.Format, "container/t64", 0, 0, err)
		}
		dataOffset, err := cur.U32LE(entryOff + 8)
		if err != nil {
			return nil, fault.At(fault.Format, "container/t64", 0, 0, err)
		}

		length := int(endAddr) - int(startAddr)
		if endAddr <= startAddr {
			length = 0
		}
		payload, err := cur.Slice(int(dataOffset), length)
		if err != nil {
			return nil, fault.At(fault.Format, "container/t64", 0, 0, err)
		}

		// Two load-address bytes (little-endian startAddr) are prefixed, the
		// way a PRG file loaded via the Commodore KERNAL expects.
		full := make([]byte, 2+len(payload))
		full[0] = byte(startAddr)
		full[1] = byte(startAddr >> 8)
		copy(full[2:], payload)

		sectors = append(sectors, SectorRecord{
			ID:      SectorID{Cylinder: 0, Head: 0, SectorNumber: i, SizeCode: 0},
			Payload: full,
		})
	}
	c.SetTrack(0, 0, &TrackImage{Sectors: sectors})
	c.MarkClean()
	return c, nil
}

func t64SignatureValid(sig []byte) bool {
	// T64 signatures in the wild vary ("C64 tape image file", "C64S tape
	// file", etc); only the common "C64" prefix is load-bearing.
	return len(sig) >= 3 && sig[0] == 'C' && sig[1] == '6' && sig[2] == '4'
}

// WriteT64 serializes a Container produced by ParseT64 back to T64 bytes.
func WriteT64(c *Container) ([]byte, error) {
	img := c.Track(0, 0)
	var entries []SectorRecord
	if img != nil {
		entries = img.Sectors
	}

	header := make([]byte, t64HeaderSize)
	copy(header, "C64S tape file\x00\x00\x00\x00\x00\x00")
	header[32] = 1 // version lo
	header[33] = 1
	maxEntries := uint16(len(entries))
	if maxEntries < 1 {
		maxEntries = 1
	}
	header[34] = byte(maxEntries)
	header[35] = byte(maxEntries >> 8)
	header[36] = byte(len(entries))
	header[37] = byte(len(entries) >> 8)

	dirSize := len(entries) * t64EntrySize
	dir := make([]byte, dirSize)
	var body []byte
	dataOffset := t64HeaderSize + dirSize

	for i, e := range entries {
		off := i * t64EntrySize
		dir[off] = 1 // entry type: normal PRG

		loadAddr := uint16(0)
		var payload []byte
		if len(e.Payload) >= 2 {
			loadAddr = uint16(e.Payload[0]) | uint16(e.Payload[1])<<8
			payload = e.Payload[2:]
		}
		endAddr := loadAddr + uint16(len(payload))

		dir[off+2] = byte(loadAddr)
		dir[off+3] = byte(loadAddr >> 8)
		dir[off+4] = byte(endAddr)
		dir[off+5] = byte(endAddr >> 8)
		dir[off+8] = byte(dataOffset)
		dir[off+9] = byte(dataOffset >> 8)
		dir[off+10] = byte(dataOffset >> 16)
		dir[off+11] = byte(dataOffset >> 24)

		body = append(body, payload...)
		dataOffset += len(payload)
	}

	out := append(append([]byte{}, header...), dir...)
	out = append(out, body...)
	return out, nil
}
