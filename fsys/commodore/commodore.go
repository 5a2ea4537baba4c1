// Package commodore implements the 1541-family BAM (Block Availability
// Map) and directory chain over a parsed D64 container. Grounded on the
// zoned sector geometry already built in package container/d64.go and
// package geometry (21/19/18/17 sectors across the four speed zones) and
// on the teacher's track/sector-chain style of walking fixed-size linked
// records a sector at a time.
package commodore

import (
	"floppy/container"
	"floppy/fault"
	"floppy/fsys"
)

const (
	dirTrack       = 18
	bamSector      = 0
	firstDirSector = 1
	dirEntrySize   = 32
	entriesPerSector = 8
)

// BAM is the in-memory allocation bitmap view for one D64 image: one entry
// per track, each a free-sector count plus a 3-byte (24-bit) bitmap where
// a set bit means free, matching the on-disk 1541 BAM layout.
type BAM struct {
	FreeCount [41]int
	Bitmap    [41][3]byte
}

// IsFree reports whether (track, sector) is marked free in the bitmap.
func (b *BAM) IsFree(track, sector int) bool {
	if track < 1 || track > 40 {
		return false
	}
	byteIdx := sector / 8
	bitIdx := uint(sector % 8)
	return b.Bitmap[track][byteIdx]&(1<<bitIdx) != 0
}

// Allocate marks (track, sector) used, decrementing the per-track free
// count if the bit was set.
func (b *BAM) Allocate(track, sector int) {
	if b.IsFree(track, sector) {
		b.Bitmap[track][sector/8] &^= 1 << uint(sector%8)
		b.FreeCount[track]--
	}
}

// Free marks (track, sector) free, incrementing the per-track free count
// if the bit was clear.
func (b *BAM) Free(track, sector int) {
	if !b.IsFree(track, sector) {
		b.Bitmap[track][sector/8] |= 1 << uint(sector%8)
		b.FreeCount[track]++
	}
}

// ReadBAM parses track 18 sector 0 of c into a BAM. Bytes 4..143 hold 40
// four-byte groups (free count + 3-byte bitmap), one per track 1..40.
func ReadBAM(c *container.Container) (*BAM, error) {
	img := c.Track(dirTrack, 0)
	if img == nil {
		return nil, fault.At(fault.Format, "fsys/commodore", dirTrack, 0, nil)
	}
	sec := img.Sector(bamSector)
	if sec == nil || len(sec.Payload) < 144 {
		return nil, fault.At(fault.Format, "fsys/commodore", dirTrack, bamSector, nil)
	}
	bam := &BAM{}
	for track := 1; track <= 40; track++ {
		off := 4 + (track-1)*4
		bam.FreeCount[track] = int(sec.Payload[off])
		copy(bam.Bitmap[track][:], sec.Payload[off+1:off+4])
	}
	return bam, nil
}

// WriteBAM serializes bam back into track 18 sector 0's payload, preserving
// every other byte of the existing sector (disk name, ID, DOS version all
// live outside the 4..143 bitmap range).
func WriteBAM(c *container.Container, bam *BAM) error {
	img := c.Track(dirTrack, 0)
	if img == nil {
		return fault.At(fault.Format, "fsys/commodore", dirTrack, 0, nil)
	}
	sec := img.Sector(bamSector)
	if sec == nil {
		return fault.At(fault.Format, "fsys/commodore", dirTrack, bamSector, nil)
	}
	for track := 1; track <= 40; track++ {
		off := 4 + (track-1)*4
		sec.Payload[off] = byte(bam.FreeCount[track])
		copy(sec.Payload[off+1:off+4], bam.Bitmap[track][:])
	}
	return nil
}

// rawEntry is one 32-byte on-disk directory slot.
type rawEntry struct {
	fileType       byte
	track, sector  byte
	name           []byte
	sizeLo, sizeHi byte
}

// ListDirectory walks the track 18 sector chain starting at sector 1,
// visiting at most fsys.VisitedCap sectors, and returns every non-empty
// (file type byte not 0x00) entry as a filesystem-neutral fsys.DirEntry.
// A malformed track/sector link (out of D64 range) stops the walk and
// reports ChainErrorBroken with whatever entries were already collected;
// reaching the visited cap reports ChainErrorTooLong.
func ListDirectory(c *container.Container) ([]fsys.DirEntry, fsys.ChainError, error) {
	var entries []fsys.DirEntry
	track, sector := dirTrack, firstDirSector
	visited := 0
	seen := make(map[[2]int]bool)

	for {
		if visited >= fsys.VisitedCap {
			return entries, fsys.ChainErrorTooLong, nil
		}
		if track == 0 {
			return entries, fsys.ChainOK, nil
		}
		if track < 1 || track > c.Geometry.Cylinders || sector < 0 {
			return entries, fsys.ChainErrorBroken, nil
		}
		key := [2]int{track, sector}
		if seen[key] {
			return entries, fsys.ChainErrorBroken, nil
		}
		seen[key] = true
		visited++

		img := c.Track(track, 0)
		if img == nil {
			return entries, fsys.ChainErrorBroken, nil
		}
		sec := img.Sector(sector)
		if sec == nil || len(sec.Payload) < 256 {
			return entries, fsys.ChainErrorBroken, nil
		}

		nextTrack := int(sec.Payload[0])
		nextSector := int(sec.Payload[1])

		for i := 0; i < entriesPerSector; i++ {
			off := i * dirEntrySize
			if off+dirEntrySize > len(sec.Payload) {
				break
			}
			raw := rawEntry{
				fileType: sec.Payload[off+2],
				track:    sec.Payload[off+3],
				sector:   sec.Payload[off+4],
				name:     sec.Payload[off+5 : off+21],
				sizeLo:   sec.Payload[off+28],
				sizeHi:   sec.Payload[off+29],
			}
			if raw.fileType == 0x00 {
				continue
			}
			entries = append(entries, fsys.DirEntry{
				Name:       fsys.PETSCIIToASCII(raw.name),
				Type:       commodoreFileType(raw.fileType),
				FirstBlock: fsys.Locator{Track: int(raw.track), Sector: int(raw.sector)},
				SizeBlocks: int(raw.sizeLo) | int(raw.sizeHi)<<8,
				Flags:      fsys.EntryFlags{Locked: raw.fileType&0x40 != 0, Closed: raw.fileType&0x80 != 0},
			})
		}

		track, sector = nextTrack, nextSector
	}
}

func commodoreFileType(b byte) fsys.FileType {
	switch b & 0x07 {
	case 1:
		return fsys.FileTypeSequential
	case 2:
		return fsys.FileTypeProgram
	case 3:
		return fsys.FileTypeUser
	case 4:
		return fsys.FileTypeRelative
	default:
		return fsys.FileTypeUnknown
	}
}

// ReadFile follows a file's track/sector data chain, accumulating bytes.
// Every sector but the last contributes all 254 payload bytes after its
// two-byte link; the last sector's link's low byte gives the count of
// valid bytes when the link's high (track) byte is zero.
func ReadFile(c *container.Container, start fsys.Locator) ([]byte, fsys.ChainError, error) {
	var out []byte
	track, sector := start.Track, start.Sector
	visited := 0
	seen := make(map[[2]int]bool)

	for {
		if visited >= fsys.VisitedCap {
			return out, fsys.ChainErrorTooLong, nil
		}
		if track < 1 || track > c.Geometry.Cylinders || sector < 0 {
			return out, fsys.ChainErrorBroken, nil
		}
		key := [2]int{track, sector}
		if seen[key] {
			return out, fsys.ChainErrorBroken, nil
		}
		seen[key] = true
		visited++

		img := c.Track(track, 0)
		if img == nil {
			return out, fsys.ChainErrorBroken, nil
		}
		sec := img.Sector(sector)
		if sec == nil || len(sec.Payload) < 2 {
			return out, fsys.ChainErrorBroken, nil
		}

		nextTrack := int(sec.Payload[0])
		nextSector := int(sec.Payload[1])

		if nextTrack == 0 {
			n := nextSector
			if n > len(sec.Payload)-2 {
				n = len(sec.Payload) - 2
			}
			out = append(out, sec.Payload[2:2+n]...)
			return out, fsys.ChainOK, nil
		}
		out = append(out, sec.Payload[2:]...)
		track, sector = nextTrack, nextSector
	}
}
