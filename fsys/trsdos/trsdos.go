// Package trsdos implements the TRS-80 Model I TRSDOS 2.3 Granule
// Allocation Table (GAT) and directory. TRSDOS variants (Model I 2.3,
// Model III LDOS, the RS-DOS cousin on the Color Computer) diverge in
// directory-entry layout and granule size in ways the source material
// leaves unresolved (§9 open question); this package targets the
// documented Model I 2.3 layout only and does not guess at the other
// variants' differences.
package trsdos

import (
	"strings"

	"floppy/container"
	"floppy/fault"
	"floppy/fsys"
)

const (
	gatTrack        = 17
	gatSector       = 0
	dirTrack        = 17
	granulesPerTrack = 2
	sectorsPerGranule = 3
	dirEntrySize    = 32
)

// GAT is the Granule Allocation Table: one byte per track, each bit
// marking one granule used (1) or free (0) within that track.
type GAT struct {
	TrackBits [40]byte
}

// ReadGAT parses track 17 sector 0's first 40 bytes as the GAT.
func ReadGAT(c *container.Container) (*GAT, error) {
	img := c.Track(gatTrack, 0)
	if img == nil {
		return nil, fault.At(fault.Format, "fsys/trsdos", gatTrack, 0, nil)
	}
	sec := img.Sector(gatSector)
	if sec == nil || len(sec.Payload) < 40 {
		return nil, fault.At(fault.Format, "fsys/trsdos", gatTrack, gatSector, nil)
	}
	g := &GAT{}
	copy(g.TrackBits[:], sec.Payload[:40])
	return g, nil
}

// IsFree reports whether granule g on track is free.
func (gat *GAT) IsFree(track, granule int) bool {
	if track < 0 || track >= 40 || granule < 0 || granule >= granulesPerTrack {
		return false
	}
	return gat.TrackBits[track]&(1<<uint(granule)) == 0
}

// Allocate marks a granule used.
func (gat *GAT) Allocate(track, granule int) {
	gat.TrackBits[track] |= 1 << uint(granule)
}

// Free marks a granule free.
func (gat *GAT) Free(track, granule int) {
	gat.TrackBits[track] &^= 1 << uint(granule)
}

// FreeGranules counts free granules across every track.
func (gat *GAT) FreeGranules() int {
	n := 0
	for track := 0; track < 40; track++ {
		for granule := 0; granule < granulesPerTrack; granule++ {
			if gat.IsFree(track, granule) {
				n++
			}
		}
	}
	return n
}

// ListDirectory walks the track-17 directory sectors (1..n, fixed at this
// track in the Model I 2.3 layout - there is no chained directory the way
// Commodore or TI-99 use), visiting at most fsys.VisitedCap sectors.
// Each 32-byte entry: flag byte (0xff = never used and 0x00 = free, both
// skipped; any other value is listed as a file, bit 7 = protected),
// name[8], extension[3], then bytes 12..31, where every byte other than
// 0xff counts as one allocated granule.
func ListDirectory(c *container.Container, dirSectors int) ([]fsys.DirEntry, fsys.ChainError, error) {
	var entries []fsys.DirEntry
	visited := 0

	img := c.Track(dirTrack, 0)
	if img == nil {
		return entries, fsys.ChainErrorBroken, nil
	}
	for s := 1; s <= dirSectors; s++ {
		if visited >= fsys.VisitedCap {
			return entries, fsys.ChainErrorTooLong, nil
		}
		visited++
		sec := img.Sector(s)
		if sec == nil || len(sec.Payload) < 256 {
			return entries, fsys.ChainErrorBroken, nil
		}
		for i := 0; i*dirEntrySize+dirEntrySize <= len(sec.Payload); i++ {
			off := i * dirEntrySize
			flag := sec.Payload[off]
			if flag == 0xff || flag == 0x00 {
				continue
			}
			name := strings.TrimRight(string(sec.Payload[off+1:off+9]), " ")
			ext := strings.TrimRight(string(sec.Payload[off+9:off+12]), " ")
			fullName := name
			if ext != "" {
				fullName = name + "." + ext
			}
			granuleCount := 0
			for g := off + 12; g < off+12+26 && g < off+dirEntrySize; g++ {
				if sec.Payload[g] != 0xff {
					granuleCount++
				}
			}
			entries = append(entries, fsys.DirEntry{
				Name:       fullName,
				Type:       fsys.FileTypeSequential,
				FirstBlock: fsys.Locator{Track: dirTrack, Sector: s},
				SizeBlocks: granuleCount,
				Flags:      fsys.EntryFlags{Protected: flag&0x80 != 0},
			})
		}
	}
	return entries, fsys.ChainOK, nil
}

// granuleToTrackSector converts a granule index (0-based across the whole
// disk, skipping the reserved directory track) to its first physical
// (track, sector).
func granuleToTrackSector(granuleIndex int) (track, sector int) {
	track = granuleIndex / granulesPerTrack
	if track >= gatTrack {
		track++ // directory track is not part of the data granule space
	}
	within := granuleIndex % granulesPerTrack
	return track, within * sectorsPerGranule
}

// ReadGranules reads every sector of the given granule indices in order,
// stopping at fsys.VisitedCap sectors visited.
func ReadGranules(c *container.Container, granules []int) ([]byte, fsys.ChainError, error) {
	var out []byte
	visited := 0
	for _, g := range granules {
		track, startSector := granuleToTrackSector(g)
		for s := startSector; s < startSector+sectorsPerGranule; s++ {
			if visited >= fsys.VisitedCap {
				return out, fsys.ChainErrorTooLong, nil
			}
			visited++
			img := c.Track(track, 0)
			if img == nil {
				return out, fsys.ChainErrorBroken, nil
			}
			sec := img.Sector(s)
			if sec == nil {
				return out, fsys.ChainErrorBroken, nil
			}
			out = append(out, sec.Payload...)
		}
	}
	return out, fsys.ChainOK, nil
}
