// Package geometry holds per-media geometry tables and the pure track/
// sector/LBA conversions every container parser in package container uses
// to validate a claimed (cylinder, head, sector).
package geometry

import "floppy/fault"

// ZoneMap gives the sectors-per-track for a variant whose recording rate
// changes across cylinder ranges (e.g. the Commodore 1541's four zones).
// Zones must be listed in ascending MaxCylinder order and must cover every
// cylinder up to Cylinders-1.
type ZoneMap struct {
	Zones []Zone
}

// Zone is a contiguous cylinder range sharing one sectors-per-track count.
type Zone struct {
	MaxCylinder     int // inclusive
	SectorsPerTrack int
}

// SectorsAt returns the sectors-per-track for cyl, or an error if cyl falls
// outside every zone.
func (z ZoneMap) SectorsAt(cyl int) (int, error) {
	for _, zone := range z.Zones {
		if cyl <= zone.MaxCylinder {
			return zone.SectorsPerTrack, nil
		}
	}
	return 0, fault.New(fault.OutOfBounds, "geometry", nil)
}

// Geometry describes one container variant's physical layout.
//
// Invariant: for any (cyl, head, sector) claimed present,
// cyl < Cylinders && head < Heads && sector < SectorsInTrack(cyl).
type Geometry struct {
	Cylinders int
	Heads     int
	// SectorsPerTrack is used when every track has the same count; Zones is
	// used instead when the variant has zone-dependent counts (Zones != nil
	// takes precedence, modeling the spec's Either<u8, ZoneMap>).
	SectorsPerTrack int
	Zones           *ZoneMap
	SectorSize      int
	// ZeroIndexed is false for variants whose tracks are 1-indexed
	// (Commodore) and true for variants that are 0-indexed (PC/IBM). Track 0
	// is an error on a 1-indexed variant and vice versa; each variant
	// declares its own convention here instead of guessing.
	ZeroIndexed bool
}

// SectorsInTrack returns the sector count for cyl under this geometry.
func (g Geometry) SectorsInTrack(cyl int) (int, error) {
	if g.Zones != nil {
		return g.Zones.SectorsAt(cyl)
	}
	if g.SectorsPerTrack <= 0 {
		return 0, fault.New(fault.Format, "geometry", nil)
	}
	return g.SectorsPerTrack, nil
}

// Validate checks that (cyl, head, sector) falls within this geometry,
// respecting the variant's track-indexing convention.
func (g Geometry) Validate(cyl, head, sector int) error {
	minCyl := 0
	if !g.ZeroIndexed {
		minCyl = 1
	}
	if cyl < minCyl || cyl >= g.Cylinders+minCyl {
		return fault.New(fault.OutOfBounds, "geometry", nil)
	}
	if head < 0 || head >= g.Heads {
		return fault.New(fault.OutOfBounds, "geometry", nil)
	}
	n, err := g.SectorsInTrack(cyl)
	if err != nil {
		return err
	}
	if sector < 0 || sector >= n {
		return fault.New(fault.OutOfBounds, "geometry", nil)
	}
	return nil
}

// LBA converts (cyl, head, sector) to a linear block address. cyl/sector use
// the geometry's own indexing convention (so callers must pass e.g. track 1
// for the first Commodore track, track 0 for the first PC track).
func (g Geometry) LBA(cyl, head, sector int) (int, error) {
	if err := g.Validate(cyl, head, sector); err != nil {
		return 0, err
	}
	minCyl := 0
	if !g.ZeroIndexed {
		minCyl = 1
	}
	lba := 0
	if g.Zones != nil {
		// Zoned media (Commodore): accumulate sector counts of every whole
		// track before cyl, then add head*tracklen, then sector.
		for c := minCyl; c < cyl; c++ {
			n, err := g.SectorsInTrack(c)
			if err != nil {
				return 0, err
			}
			lba += n
		}
		n, err := g.SectorsInTrack(cyl)
		if err != nil {
			return 0, err
		}
		lba += head*n + sector
	} else {
		lba = ((cyl-minCyl)*g.Heads+head)*g.SectorsPerTrack + sector
	}
	return lba, nil
}

// Inverse converts a linear block address back to (cyl, head, sector). It is
// the exact left inverse of LBA for every valid address (§8 property 2).
func (g Geometry) Inverse(lba int) (cyl, head, sector int, err error) {
	if lba < 0 {
		return 0, 0, 0, fault.New(fault.OutOfBounds, "geometry", nil)
	}
	minCyl := 0
	if !g.ZeroIndexed {
		minCyl = 1
	}
	if g.Zones == nil {
		trackLen := g.Heads * g.SectorsPerTrack
		if trackLen == 0 {
			return 0, 0, 0, fault.New(fault.Format, "geometry", nil)
		}
		track := lba / trackLen
		rem := lba % trackLen
		cyl = track + minCyl
		head = rem / g.SectorsPerTrack
		sector = rem % g.SectorsPerTrack
		if err := g.Validate(cyl, head, sector); err != nil {
			return 0, 0, 0, err
		}
		return cyl, head, sector, nil
	}
	remaining := lba
	for c := minCyl; c < g.Cylinders+minCyl; c++ {
		n, e := g.SectorsInTrack(c)
		if e != nil {
			return 0, 0, 0, e
		}
		trackLen := n * g.Heads
		if remaining < trackLen {
			head = remaining / n
			sector = remaining % n
			if verr := g.Validate(c, head, sector); verr != nil {
				return 0, 0, 0, verr
			}
			return c, head, sector, nil
		}
		remaining -= trackLen
	}
	return 0, 0, 0, fault.New(fault.OutOfBounds, "geometry", nil)
}
