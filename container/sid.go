package container

import (
	"strings"

	"floppy/fault"
	"floppy/geometry"
	"floppy/ioprim"
)

const (
	sidV1HeaderLen = 0x76
	sidV2HeaderLen = 0x7c
)

// ParseSID parses a PSID/RSID music file (v1-v4): a fixed big-endian header
// (magic, version, data offset, load/init/play addresses, song count, name/
// author/released strings) followed by the C64 program data itself. SID has
// no track/sector geometry; the program bytes are modeled as one sector so
// the same Container/TrackImage API serves every variant.
func ParseSID(data []byte) (*Container, error) {
	cur := ioprim.NewCursor(data)
	magic, err := cur.Slice(0, 4)
	if err != nil {
		return nil, fault.New(fault.Format, "container/sid", err)
	}
	magicStr := string(magic)
	if magicStr != "PSID" && magicStr != "RSID" {
		return nil, fault.New(fault.Format, "container/sid", nil)
	}

	version, err := cur.U16BE(4)
	if err != nil {
		return nil, fault.New(fault.Format, "container/sid", err)
	}
	dataOffset, err := cur.U16BE(6)
	if err != nil {
		return nil, fault.New(fault.Format, "container/sid", err)
	}
	loadAddress, err := cur.U16BE(8)
	if err != nil {
		return nil, fault.New(fault.Format, "container/sid", err)
	}
	songs, err := cur.U16BE(0x0e)
	if err != nil {
		return nil, fault.New(fault.Format, "container/sid", err)
	}
	name, err := sidCString(cur, 0x16, 32)
	if err != nil {
		return nil, fault.New(fault.Format, "container/sid", err)
	}
	author, err := sidCString(cur, 0x36, 32)
	if err != nil {
		return nil, fault.New(fault.Format, "container/sid", err)
	}
	released, err := sidCString(cur, 0x56, 32)
	if err != nil {
		return nil, fault.New(fault.Format, "container/sid", err)
	}

	g := geometry.Geometry{Cylinders: 1, Heads: 1, SectorSize: 0, ZeroIndexed: true}
	c := NewContainer(VariantSID, g)
	c.Metadata["magic"] = magicStr
	c.Metadata["name"] = name
	c.Metadata["author"] = author
	c.Metadata["released"] = released
	c.Metadata["songs"] = itoa(int(songs))
	c.Metadata["version"] = itoa(int(version))

	// loadAddress of 0 means the program's own first two little-endian bytes
	// carry the real load address, as with a raw PRG.
	_ = loadAddress

	body, err := cur.Slice(int(dataOffset), cur.Len()-int(dataOffset))
	if err != nil {
		return nil, fault.New(fault.Format, "container/sid", err)
	}
	c.SetTrack(0, 0, &TrackImage{Sectors: []SectorRecord{{
		ID:      SectorID{Cylinder: 0, Head: 0, SectorNumber: 0, SizeCode: 0},
		Payload: append([]byte{}, body...),
	}}})
	c.MarkClean()
	return c, nil
}

func sidCString(cur ioprim.Cursor, offset, n int) (string, error) {
	raw, err := cur.Slice(offset, n)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(raw), "\x00"), nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// WriteSID serializes a Container produced by ParseSID back to PSID v2
// bytes.
func WriteSID(c *Container) ([]byte, error) {
	header := make([]byte, sidV2HeaderLen)
	magic := c.Metadata["magic"]
	if magic != "PSID" && magic != "RSID" {
		magic = "PSID"
	}
	copy(header[0:4], magic)
	putU16BE(header[4:6], 2)
	putU16BE(header[6:8], sidV2HeaderLen)
	putU16BE(header[8:10], 0)
	putU16BE(header[0x0e:0x10], 1)
	header[0x10] = 0
	header[0x11] = 1
	copy(header[0x16:0x36], []byte(c.Metadata["name"]))
	copy(header[0x36:0x56], []byte(c.Metadata["author"]))
	copy(header[0x56:0x76], []byte(c.Metadata["released"]))

	var body []byte
	if img := c.Track(0, 0); img != nil {
		if sec := img.Sector(0); sec != nil {
			body = sec.Payload
		}
	}
	return append(header, body...), nil
}

func putU16BE(dst []byte, v uint16) {
	dst[0] = byte(v >> 8)
	dst[1] = byte(v)
}
