package container

import (
	"sort"

	"floppy/fault"
	"floppy/geometry"
	"floppy/ioprim"
)

const (
	jv3HeaderEntries = 967
	jv3EntrySize     = 3
	jv3HeaderSize    = jv3HeaderEntries * jv3EntrySize // 2901
	jv3FreeTrack     = 0xff
)

const (
	jv3FlagDensityMask = 0x80
	jv3FlagDeleted      = 0x40
	jv3FlagError        = 0x20
	jv3FlagSizeMask     = 0x03
)

// jv3SizeFromFlags maps the two size-code bits of a JV3 entry flag byte to a
// sector length. The source's bit assignment is the unusual one flagged as
// an open question: 00->256, 01->128, 10->1024, 11->512, rather than the
// more common 00->128, 01->256, 10->512, 11->1024 ascending order. Kept as
// specified since no reference image was available to verify against.
func jv3SizeFromFlags(flags byte) int {
	switch flags & jv3FlagSizeMask {
	case 0x00:
		return 256
	case 0x01:
		return 128
	case 0x02:
		return 1024
	default:
		return 512
	}
}

// ParseJV3 parses a TRS-80 JV3 image: no magic, detected structurally by a
// 2901-byte table of {track, sector, flags} entries terminated by a
// 0xff track byte, followed by sector payloads in table order.
func ParseJV3(data []byte) (*Container, error) {
	cur := ioprim.NewCursor(data)
	if cur.Len() < jv3HeaderSize {
		return nil, fault.New(fault.Format, "container/jv3", nil)
	}

	g := geometry.Geometry{Cylinders: 80, Heads: 2, SectorSize: 256, ZeroIndexed: true}
	c := NewContainer(VariantJV3, g)

	dataOffset := jv3HeaderSize
	for i := 0; i < jv3HeaderEntries; i++ {
		entryOff := i * jv3EntrySize
		track, err := cur.U8(entryOff)
		if err != nil {
			return nil, fault.At(fault.Format, "container/jv3", 0, 0, err)
		}
		if track == jv3FreeTrack {
			break
		}
		sector, err := cur.U8(entryOff + 1)
		if err != nil {
			return nil, fault.At(fault.Format, "container/jv3", int(track), 0, err)
		}
		flags, err := cur.U8(entryOff + 2)
		if err != nil {
			return nil, fault.At(fault.Format, "container/jv3", int(track), 0, err)
		}

		size := jv3SizeFromFlags(flags)
		payload, err := cur.Slice(dataOffset, size)
		if err != nil {
			return nil, fault.At(fault.Format, "container/jv3", int(track), 0, err)
		}
		dataOffset += size

		head := 0
		if flags&jv3FlagDensityMask != 0 {
			head = 1
		}

		img := c.Track(int(track), head)
		if img == nil {
			img = &TrackImage{}
		}
		img.Sectors = append(img.Sectors, SectorRecord{
			ID:      SectorID{Cylinder: int(track), Head: head, SectorNumber: int(sector), SizeCode: sizeCodeForLen(size)},
			Payload: append([]byte{}, payload...),
			Flags:   SectorFlags{Deleted: flags&jv3FlagDeleted != 0, CrcBad: flags&jv3FlagError != 0},
		})
		c.SetTrack(int(track), head, img)
	}
	c.MarkClean()
	return c, nil
}

func sizeCodeForLen(n int) int {
	switch n {
	case 128:
		return 0
	case 256:
		return 1
	case 512:
		return 2
	case 1024:
		return 3
	default:
		return 1
	}
}

// WriteJV3 serializes a Container back to JV3 bytes: the fixed-size header
// table first, then sector payloads in the same order as the header
// entries, mirroring ParseJV3's layout. Tracks are emitted in ascending
// (cylinder, head) order and each track's sectors in stored order, so a
// round trip of an unmodified image whose entries are already in that
// order reproduces it byte-for-byte.
func WriteJV3(c *Container) ([]byte, error) {
	header := make([]byte, jv3HeaderSize)
	for i := range header {
		header[i] = jv3FreeTrack
	}

	keys := make([]TrackKey, 0, len(c.Tracks))
	for key := range c.Tracks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Cylinder != keys[j].Cylinder {
			return keys[i].Cylinder < keys[j].Cylinder
		}
		return keys[i].Head < keys[j].Head
	})

	var body []byte
	entryIdx := 0
	for _, key := range keys {
		img := c.Tracks[key]
		for _, sec := range img.Sectors {
			if entryIdx >= jv3HeaderEntries {
				return nil, fault.New(fault.LimitExceeded, "container/jv3", nil)
			}
			off := entryIdx * jv3EntrySize
			header[off] = byte(key.Cylinder)
			header[off+1] = byte(sec.ID.SectorNumber)

			var flags byte
			if key.Head == 1 {
				flags |= jv3FlagDensityMask
			}
			if sec.Flags.Deleted {
				flags |= jv3FlagDeleted
			}
			if sec.Flags.CrcBad {
				flags |= jv3FlagError
			}
			flags |= jv3SizeFlagBits(len(sec.Payload))
			header[off+2] = flags

			body = append(body, sec.Payload...)
			entryIdx++
		}
	}

	return append(header, body...), nil
}

func jv3SizeFlagBits(n int) byte {
	switch n {
	case 256:
		return 0x00
	case 128:
		return 0x01
	case 1024:
		return 0x02
	default:
		return 0x03
	}
}
