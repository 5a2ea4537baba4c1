package geometry

// Commodore1541 is the classic 1541/1570 4-zone geometry: tracks 1-17 have
// 21 sectors, 18-24 have 19, 25-30 have 18, 31-42 have 17. Grounded on the
// sectorsPerTrack helper from other_examples' D64 writer reference, which
// encodes this exact switch. Commodore tracks are 1-indexed.
var Commodore1541 = Geometry{
	Cylinders: 42,
	Heads:     1,
	Zones: &ZoneMap{Zones: []Zone{
		{MaxCylinder: 17, SectorsPerTrack: 21},
		{MaxCylinder: 24, SectorsPerTrack: 19},
		{MaxCylinder: 30, SectorsPerTrack: 18},
		{MaxCylinder: 42, SectorsPerTrack: 17},
	}},
	SectorSize:  256,
	ZeroIndexed: false,
}

// Commodore1571 doubles the 1541 geometry across two heads (double-sided).
var Commodore1571 = Geometry{
	Cylinders: 42,
	Heads:     2,
	Zones:     Commodore1541.Zones,
	SectorSize: 256,
	ZeroIndexed: false,
}

// IBMPC_1440K is the standard 3.5" 1.44 MB high-density PC geometry: 80
// cylinders, 2 heads, 18 sectors/track, 512-byte sectors, 0-indexed tracks.
var IBMPC_1440K = Geometry{
	Cylinders:       80,
	Heads:           2,
	SectorsPerTrack: 18,
	SectorSize:      512,
	ZeroIndexed:     true,
}

// IBMPC_720K is the 3.5" double-density PC geometry.
var IBMPC_720K = Geometry{
	Cylinders:       80,
	Heads:           2,
	SectorsPerTrack: 9,
	SectorSize:      512,
	ZeroIndexed:     true,
}

// IBMPC_360K is the 5.25" double-density PC geometry.
var IBMPC_360K = Geometry{
	Cylinders:       40,
	Heads:           2,
	SectorsPerTrack: 9,
	SectorSize:      512,
	ZeroIndexed:     true,
}

// AmigaDD is the Commodore Amiga 3.5" double-density geometry (11 512-byte
// sectors/track across 2 heads, 80 cylinders: 880 KB).
var AmigaDD = Geometry{
	Cylinders:       80,
	Heads:           2,
	SectorsPerTrack: 11,
	SectorSize:      512,
	ZeroIndexed:     true,
}
