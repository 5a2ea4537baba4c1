package container

import (
	"strings"

	"floppy/fault"
	"floppy/geometry"
	"floppy/ioprim"
)

const (
	vsfMagic        = "VICE Snapshot File"
	vsfHeaderLen    = 37 // 19-byte magic + major + minor + 16-byte machine name
	vsfModuleNameLen = 16
)

// VSFModule is one named, versioned data block inside a VICE snapshot.
type VSFModule struct {
	Name        string
	MajorVer    byte
	MinorVer    byte
	Data        []byte
}

// ParseSID's sibling for VICE snapshots: ParseVSF parses the 37-byte fixed
// header (magic, version, machine name) then walks the module table until
// end of file. A snapshot with zero modules (the minimum valid VSF, used
// for interoperability probing) parses successfully with an empty module
// list; GetCPUState on such a Container reports Format, module missing.
func ParseVSF(data []byte) (*Container, error) {
	cur := ioprim.NewCursor(data)
	magic, err := cur.Slice(0, len(vsfMagic))
	if err != nil || string(magic) != vsfMagic {
		return nil, fault.New(fault.Format, "container/vsf", err)
	}
	major, err := cur.U8(19)
	if err != nil {
		return nil, fault.New(fault.Format, "container/vsf", err)
	}
	minor, err := cur.U8(20)
	if err != nil {
		return nil, fault.New(fault.Format, "container/vsf", err)
	}
	machineRaw, err := cur.Slice(21, vsfModuleNameLen)
	if err != nil {
		return nil, fault.New(fault.Format, "container/vsf", err)
	}
	machine := strings.TrimRight(string(machineRaw), "\x00")

	g := geometry.Geometry{Cylinders: 0, Heads: 0, SectorSize: 0, ZeroIndexed: true}
	c := NewContainer(VariantVSF, g)
	c.Metadata["machine"] = machine
	c.Metadata["version"] = itoa(int(major)) + "." + itoa(int(minor))

	var modules []VSFModule
	offset := vsfHeaderLen
	for offset < cur.Len() {
		nameRaw, err := cur.Slice(offset, vsfModuleNameLen)
		if err != nil {
			break
		}
		modMajor, err := cur.U8(offset + vsfModuleNameLen)
		if err != nil {
			return nil, fault.New(fault.Format, "container/vsf", err)
		}
		modMinor, err := cur.U8(offset + vsfModuleNameLen + 1)
		if err != nil {
			return nil, fault.New(fault.Format, "container/vsf", err)
		}
		length, err := cur.U32LE(offset + vsfModuleNameLen + 2)
		if err != nil {
			return nil, fault.New(fault.Format, "container/vsf", err)
		}
		if length < vsfModuleNameLen+6 {
			return nil, fault.New(fault.Format, "container/vsf", nil)
		}
		bodyLen := int(length) - (vsfModuleNameLen + 6)
		body, err := cur.Slice(offset+vsfModuleNameLen+6, bodyLen)
		if err != nil {
			return nil, fault.New(fault.Format, "container/vsf", err)
		}
		modules = append(modules, VSFModule{
			Name:     strings.TrimRight(string(nameRaw), "\x00"),
			MajorVer: modMajor,
			MinorVer: modMinor,
			Data:     append([]byte{}, body...),
		})
		offset += int(length)
	}

	var sectors []SectorRecord
	for i, m := range modules {
		sectors = append(sectors, SectorRecord{
			ID:      SectorID{Cylinder: 0, Head: 0, SectorNumber: i, SizeCode: 0},
			Payload: m.Data,
		})
	}
	c.SetTrack(0, 0, &TrackImage{Sectors: sectors})
	c.Metadata["module_count"] = itoa(len(modules))
	for i, m := range modules {
		c.Metadata["module_name_"+itoa(i)] = m.Name
	}
	c.MarkClean()
	return c, nil
}

// GetCPUState returns the MAINCPU module's register-state bytes, or a
// Format error if the snapshot carries no such module (the case for a
// zero-module minimal VSF).
func GetCPUState(c *Container) ([]byte, error) {
	count, _ := atoiSafe(c.Metadata["module_count"])
	for i := 0; i < count; i++ {
		if c.Metadata["module_name_"+itoa(i)] == "MAINCPU" {
			img := c.Track(0, 0)
			if img != nil {
				if sec := img.Sector(i); sec != nil {
					return sec.Payload, nil
				}
			}
		}
	}
	return nil, fault.New(fault.Format, "container/vsf", nil)
}

func atoiSafe(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
