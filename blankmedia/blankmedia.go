// Package blankmedia synthesizes freshly-initialized disk images for the
// container variants that represent physical media (as opposed to VSF
// snapshots, SID tunes, or CVT archives, which have no "blank" concept).
// images/embedded.go shipped these as gzip-compressed binary blobs baked
// in with go:embed; none of the referenced .gz files existed on disk, so
// that package could never compile. This package replaces the blobs with
// programmatic construction on top of package container's NewContainer
// and WriteXXX functions - every byte of a blank image here is produced
// by code already written to implement the container formats themselves,
// so there is nothing left to embed.
package blankmedia

import (
	"sync"

	"floppy/container"
	"floppy/fault"
	"floppy/geometry"

	"golang.org/x/sync/errgroup"
)

// d64Geometry returns the standard 35-track D64 zoned geometry (683
// sectors in all), matching the layout container.ParseD64/WriteD64 expect.
func d64Geometry() geometry.Geometry {
	return geometry.Geometry{
		Cylinders: 35, Heads: 1, SectorSize: 256, ZeroIndexed: false,
		Zones: &geometry.ZoneMap{Zones: []geometry.Zone{
			{MaxCylinder: 17, SectorsPerTrack: 21},
			{MaxCylinder: 24, SectorsPerTrack: 19},
			{MaxCylinder: 30, SectorsPerTrack: 18},
			{MaxCylinder: 35, SectorsPerTrack: 17},
		}},
	}
}

// D64 builds a blank, DOS-formatted-shape 1541 disk: every sector zeroed
// except track 18 sector 0, which carries a BAM with every other track
// fully free and a placeholder disk name, and track 18 sector 1, an empty
// first directory sector (no next-link, no entries).
func D64() (*container.Container, error) {
	g := d64Geometry()
	c := container.NewContainer(container.VariantD64, g)

	for track := 1; track <= 35; track++ {
		n, err := g.SectorsInTrack(track)
		if err != nil {
			return nil, err
		}
		var sectors []container.SectorRecord
		for s := 0; s < n; s++ {
			sectors = append(sectors, container.SectorRecord{
				ID:      container.SectorID{Cylinder: track, SectorNumber: s, SizeCode: 1},
				Payload: make([]byte, 256),
			})
		}
		c.SetTrack(track, 0, &container.TrackImage{Sectors: sectors})
	}

	bamImg := c.Track(18, 0)
	bam := bamImg.Sector(0)
	bam.Payload[0] = 18
	bam.Payload[1] = 1
	bam.Payload[2] = 0x41 // DOS version "A"
	for track := 1; track <= 35; track++ {
		n, _ := g.SectorsInTrack(track)
		off := 4 + (track-1)*4
		bam.Payload[off] = byte(n)
		for b := 0; b < 3; b++ {
			bam.Payload[off+1+b] = 0xff
		}
	}
	// Track 18 sectors 0 (BAM) and 1 (first directory sector) are in use.
	dirTrackOff := 4 + (18-1)*4
	bam.Payload[dirTrackOff] -= 2
	bam.Payload[dirTrackOff+1] &^= 0x03
	copy(bam.Payload[144:160], padPETSCII("BLANK DISK", 16))
	copy(bam.Payload[162:164], []byte{0xa0, 0xa0})
	copy(bam.Payload[165:167], []byte{'2', 'A'})

	dirImg := c.Track(18, 0)
	dirSector := dirImg.Sector(1)
	dirSector.Payload[0] = 0
	dirSector.Payload[1] = 0xff

	c.MarkClean()
	return c, nil
}

func padPETSCII(name string, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = 0xa0
	}
	copy(out, name)
	return out
}

// JV3 builds a blank single-density TRS-80 35-track, 10-sector-per-track
// disk: an empty entry table (every track byte already the 0xff free
// marker container.WriteJV3/ParseJV3 treat as end-of-directory) and no
// sector payload, matching a freshly low-level-formatted JV3 image with
// nothing written yet.
func JV3() (*container.Container, error) {
	g := geometry.Geometry{Cylinders: 35, Heads: 1, SectorsPerTrack: 10, SectorSize: 256, ZeroIndexed: true}
	c := container.NewContainer(container.VariantJV3, g)
	c.MarkClean()
	return c, nil
}

// T64 builds an empty C64 tape archive: zero used directory entries.
func T64() (*container.Container, error) {
	g := geometry.Geometry{Cylinders: 1, Heads: 1, SectorsPerTrack: 1, SectorSize: 0, ZeroIndexed: true}
	c := container.NewContainer(container.VariantT64, g)
	c.Metadata["tape_name"] = "BLANK TAPE"
	c.MarkClean()
	return c, nil
}

// HFE builds a blank IBM-format floppy shaped track image: every track
// filled with the MFM gap byte (0x4e, the standard IBM-format filler)
// rather than any formatted sector content, so the result is a genuinely
// unformatted surface, not a disk claiming a filesystem it doesn't have.
func HFE(cylinders, heads, bytesPerTrack int) (*container.Container, error) {
	if cylinders <= 0 || heads <= 0 || heads > 2 || bytesPerTrack <= 0 {
		return nil, fault.New(fault.Format, "blankmedia", nil)
	}
	g := geometry.Geometry{Cylinders: cylinders, Heads: heads, SectorSize: 512, ZeroIndexed: true}
	c := container.NewContainer(container.VariantHFE, g)

	// A blank high-density image (HFE1440K: 80 cylinders * 2 heads) fills
	// 160 independent gap buffers; each is built by its own goroutine and
	// installed under setMu, since Container.SetTrack isn't safe for
	// concurrent callers.
	var eg errgroup.Group
	var setMu sync.Mutex
	for t := 0; t < cylinders; t++ {
		for h := 0; h < heads; h++ {
			t, h := t, h
			eg.Go(func() error {
				gap := make([]byte, bytesPerTrack)
				for i := range gap {
					gap[i] = 0x4e
				}
				setMu.Lock()
				c.SetTrack(t, h, &container.TrackImage{Bits: gap})
				setMu.Unlock()
				return nil
			})
		}
	}
	_ = eg.Wait() // every goroutine above is infallible; error return kept for the errgroup.Group contract
	c.MarkClean()
	return c, nil
}

// HFE1440K builds a blank 3.5" 1.44MB high-density HFE image: 80
// cylinders, 2 heads, the standard 12500-byte MFM track length at 1x data
// rate (250kbps * 0.2s per revolution at 300rpm is closer to 6250, but HD
// media runs the bit rate doubled, giving the widely-used 12500 byte
// figure for a raw HFE track buffer at this density).
func HFE1440K() (*container.Container, error) {
	return HFE(80, 2, 12500)
}

// G64 builds a blank G64 with every track absent (zero-length, matching
// container.WriteG64's skip-if-Bits-empty convention) except the minimum
// track count required for a 35-track 1541-shaped disk, each holding a
// GCR gap fill of 0x55 (the conventional erased-GCR byte pattern).
func G64() (*container.Container, error) {
	g := geometry.Geometry{Cylinders: 35, Heads: 1, SectorSize: 0, ZeroIndexed: false}
	c := container.NewContainer(container.VariantG64, g)
	for track := 1; track <= 35; track++ {
		gap := make([]byte, 7928)
		for i := range gap {
			gap[i] = 0x55
		}
		c.SetTrack(track, 0, &container.TrackImage{Bits: gap})
	}
	c.MarkClean()
	return c, nil
}
