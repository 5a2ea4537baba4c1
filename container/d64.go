package container

import (
	"floppy/fault"
	"floppy/geometry"
	"floppy/ioprim"
)

// D64 track-by-track sector counts for the standard 35, 40-track extended,
// and 42-track extended variants. Grounded on the zoned sector counts in
// the Commodore 1541 BAM writer example (sectorsPerTrack switch over the
// four speed zones).
func d64SectorsForTrack(track int) int {
	switch {
	case track >= 1 && track <= 17:
		return 21
	case track >= 18 && track <= 24:
		return 19
	case track >= 25 && track <= 30:
		return 18
	case track >= 31 && track <= 42:
		return 17
	default:
		return 0
	}
}

// d64TrackOffset returns the byte offset of track's first sector (track 1
// is at offset 0), used by both ParseD64 and WriteD64.
func d64TrackOffset(track int) int {
	off := 0
	for t := 1; t < track; t++ {
		off += d64SectorsForTrack(t) * 256
	}
	return off
}

// ParseD64 parses a standard (35-track, 683-sector), 40-track, or 42-track
// extended D64 image. Sector errata bytes, present on some D64 dumps as a
// trailing per-sector status byte, are folded into Container.Errata.
func ParseD64(data []byte) (*Container, error) {
	cur := ioprim.NewCursor(data)

	totalTracks := 35
	for _, candidate := range []int{42, 40, 35} {
		size := d64TrackOffset(candidate + 1)
		if cur.Len() == size || cur.Len() == size+size/256 {
			totalTracks = candidate
			break
		}
	}

	hasErrata := cur.Len() > d64TrackOffset(totalTracks+1)
	errataBase := d64TrackOffset(totalTracks + 1)

	g := geometry.Geometry{
		Cylinders: totalTracks, Heads: 1, SectorSize: 256,
		ZeroIndexed: false,
		Zones: &geometry.ZoneMap{Zones: []geometry.Zone{
			{MaxCylinder: 17, SectorsPerTrack: 21},
			{MaxCylinder: 24, SectorsPerTrack: 19},
			{MaxCylinder: 30, SectorsPerTrack: 18},
			{MaxCylinder: totalTracks, SectorsPerTrack: 17},
		}},
	}
	c := NewContainer(VariantD64, g)

	sectorIndex := 0
	for track := 1; track <= totalTracks; track++ {
		n := d64SectorsForTrack(track)
		var sectors []SectorRecord
		for s := 0; s < n; s++ {
			off := d64TrackOffset(track) + s*256
			payload, err := cur.Slice(off, 256)
			if err != nil {
				return nil, fault.At(fault.Format, "container/d64", track, 0, err)
			}
			flags := SectorFlags{}
			if hasErrata {
				status, err := cur.U8(errataBase + sectorIndex)
				if err == nil && status != 0 && status != 1 {
					flags.CrcBad = true
					c.Errata[ErrataKey{Cylinder: track, Head: 0, Sector: s}] = ErrorCrcBad
				}
			}
			sectors = append(sectors, SectorRecord{
				ID:      SectorID{Cylinder: track, Head: 0, SectorNumber: s, SizeCode: 1},
				Payload: append([]byte{}, payload...),
				Flags:   flags,
			})
			sectorIndex++
		}
		c.SetTrack(track, 0, &TrackImage{Sectors: sectors})
	}
	c.MarkClean()
	return c, nil
}

// WriteD64 serializes a Container back to a D64 image. Track/sector order
// round-trips byte-exactly with ParseD64 for an image that was never
// logically modified and carries no errata block. Container.Errata is not
// written: an image parsed with trailing per-sector errata bytes comes back
// without them.
func WriteD64(c *Container) ([]byte, error) {
	totalTracks := c.Geometry.Cylinders
	out := make([]byte, d64TrackOffset(totalTracks+1))
	for track := 1; track <= totalTracks; track++ {
		img := c.Track(track, 0)
		n := d64SectorsForTrack(track)
		for s := 0; s < n; s++ {
			off := d64TrackOffset(track) + s*256
			var payload []byte
			if img != nil {
				if sec := img.Sector(s); sec != nil {
					payload = sec.Payload
				}
			}
			if len(payload) != 256 {
				payload = make([]byte, 256)
			}
			copy(out[off:off+256], payload)
		}
	}
	return out, nil
}
