package container

import (
	"strings"

	"floppy/fault"
	"floppy/geometry"
	"floppy/ioprim"
)

const (
	cvtWrapperLen = 30
	cvtInfoLen    = 254 // GEOS info sector body, minus the 2-byte track/sector link
)

// ParseCVT parses a GEOS .cvt convert-format file: a 30-byte wrapper
// (GEOS file structure/type, 16-byte PETSCII name, record size or VLIR
// flag), a 254-byte GEOS info block, then the program/data body. CVT
// carries no disk geometry; wrapper and info block are exposed as
// Metadata, and the body as a single sector so downstream code shares the
// Container API with every other variant.
func ParseCVT(data []byte) (*Container, error) {
	cur := ioprim.NewCursor(data)
	if cur.Len() < cvtWrapperLen+cvtInfoLen {
		return nil, fault.New(fault.Format, "container/cvt", nil)
	}

	structType, err := cur.U8(0)
	if err != nil {
		return nil, fault.New(fault.Format, "container/cvt", err)
	}
	fileType, err := cur.U8(1)
	if err != nil {
		return nil, fault.New(fault.Format, "container/cvt", err)
	}
	nameRaw, err := cur.Slice(2, 16)
	if err != nil {
		return nil, fault.New(fault.Format, "container/cvt", err)
	}
	sizeBlocks, err := cur.U16LE(18)
	if err != nil {
		return nil, fault.New(fault.Format, "container/cvt", err)
	}

	infoBlock, err := cur.Slice(cvtWrapperLen, cvtInfoLen)
	if err != nil {
		return nil, fault.New(fault.Format, "container/cvt", err)
	}

	bodyOff := cvtWrapperLen + cvtInfoLen
	body, err := cur.Slice(bodyOff, cur.Len()-bodyOff)
	if err != nil {
		return nil, fault.New(fault.Format, "container/cvt", err)
	}

	g := geometry.Geometry{Cylinders: 1, Heads: 1, SectorSize: 0, ZeroIndexed: true}
	c := NewContainer(VariantCVT, g)
	c.Metadata["name"] = trimPETSCIIPad(nameRaw)
	c.Metadata["struct_type"] = itoa(int(structType))
	c.Metadata["file_type"] = itoa(int(fileType))
	c.Metadata["size_blocks"] = itoa(int(sizeBlocks))

	c.SetTrack(0, 0, &TrackImage{Sectors: []SectorRecord{
		{ID: SectorID{SectorNumber: 0}, Payload: append([]byte{}, infoBlock...)},
		{ID: SectorID{SectorNumber: 1}, Payload: append([]byte{}, body...)},
	}})
	c.MarkClean()
	return c, nil
}

// trimPETSCIIPad strips GEOS's 0xA0 shifted-space directory-name padding.
func trimPETSCIIPad(raw []byte) string {
	end := len(raw)
	for end > 0 && raw[end-1] == 0xa0 {
		end--
	}
	return strings.TrimRight(string(raw[:end]), "\x00")
}

// WriteCVT serializes a Container produced by ParseCVT back to CVT bytes.
func WriteCVT(c *Container) ([]byte, error) {
	img := c.Track(0, 0)
	var infoBlock, body []byte
	if img != nil {
		if sec := img.Sector(0); sec != nil {
			infoBlock = sec.Payload
		}
		if sec := img.Sector(1); sec != nil {
			body = sec.Payload
		}
	}
	if len(infoBlock) != cvtInfoLen {
		padded := make([]byte, cvtInfoLen)
		copy(padded, infoBlock)
		infoBlock = padded
	}

	structType, _ := atoiSafe(c.Metadata["struct_type"])
	fileType, _ := atoiSafe(c.Metadata["file_type"])
	sizeBlocks, _ := atoiSafe(c.Metadata["size_blocks"])

	wrapper := make([]byte, cvtWrapperLen)
	wrapper[0] = byte(structType)
	wrapper[1] = byte(fileType)
	name := []byte(c.Metadata["name"])
	for i := 0; i < 16; i++ {
		if i < len(name) {
			wrapper[2+i] = name[i]
		} else {
			wrapper[2+i] = 0xa0
		}
	}
	wrapper[18] = byte(sizeBlocks)
	wrapper[19] = byte(sizeBlocks >> 8)

	out := append(wrapper, infoBlock...)
	out = append(out, body...)
	return out, nil
}
