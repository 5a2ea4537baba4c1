// Package ti99 implements the TI-99/4A disk filesystem: a Volume
// Information Block (sector 0) and a File Descriptor Record chain
// (FDIR/FDR, per the GLOSSARY), walked with the same visited-set cap and
// bitmap-consistency invariant as package fsys/commodore.
package ti99

import (
	"strings"

	"floppy/container"
	"floppy/fault"
	"floppy/fsys"
)

const (
	vibSector     = 0
	fdrNamePadLen = 10
)

// VIB is the decoded Volume Information Block: disk name, total sectors,
// sectors per track, and the allocation bitmap (one bit per sector,
// 0=free per the TI disk controller convention - the inverse sense of the
// Commodore BAM).
type VIB struct {
	Name            string
	TotalSectors    int
	SectorsPerTrack int
	Bitmap          []byte
}

// ReadVIB parses sector 0 into a VIB. Bytes: name[10], total sectors BE
// u16 at 0x0a, sectors-per-track at 0x0c, DSK marker at 0x0d-0x0f, then a
// bitmap starting at 0x38 sized ceil(totalSectors/8) bytes.
func ReadVIB(c *container.Container) (*VIB, error) {
	img := c.Track(0, 0)
	if img == nil {
		return nil, fault.At(fault.Format, "fsys/ti99", 0, 0, nil)
	}
	sec := img.Sector(vibSector)
	if sec == nil || len(sec.Payload) < 0x38 {
		return nil, fault.At(fault.Format, "fsys/ti99", 0, vibSector, nil)
	}
	p := sec.Payload
	total := int(p[0x0a])<<8 | int(p[0x0b])
	perTrack := int(p[0x0c])
	bitmapLen := (total + 7) / 8
	if 0x38+bitmapLen > len(p) {
		bitmapLen = len(p) - 0x38
	}
	return &VIB{
		Name:            strings.TrimRight(string(p[0:fdrNamePadLen]), " "),
		TotalSectors:    total,
		SectorsPerTrack: perTrack,
		Bitmap:          append([]byte{}, p[0x38:0x38+bitmapLen]...),
	}, nil
}

// IsFree reports whether logical sector n is marked free (bit clear, the
// TI convention).
func (v *VIB) IsFree(n int) bool {
	byteIdx := n / 8
	if byteIdx >= len(v.Bitmap) {
		return false
	}
	return v.Bitmap[byteIdx]&(1<<uint(n%8)) == 0
}

// FreeCount returns the number of sectors marked free across the whole
// bitmap (§8 property 6: allocation consistency).
func (v *VIB) FreeCount() int {
	n := 0
	for s := 0; s < v.TotalSectors; s++ {
		if v.IsFree(s) {
			n++
		}
	}
	return n
}

// FDREntry is one decoded file descriptor record: name, type, and the data
// chain's cluster list (pairs of {start sector, sector count} encoded in
// the FDR, one fragment per physical extent).
type FDREntry struct {
	Name        string
	FileType    fsys.FileType
	RecordCount int
	Clusters    []Cluster
}

// Cluster is one contiguous run of data sectors.
type Cluster struct {
	Start int
	Count int
}

// ReadFDR parses one File Descriptor Record sector into an FDREntry. FDR
// layout: name[10], extended flags[2], file status byte at 0x0c, records-
// per-sector at 0x0d, sectors-allocated BE u16 at 0x0e, EOF offset at
// 0x10, record length at 0x11, level-3 record count LE u16 at 0x12, then
// up to 76 cluster descriptors (3 bytes each: a 12-bit start sector in the
// low bits, then a 12-bit field holding the sector count minus one)
// starting at 0x1c.
func ReadFDR(sectorPayload []byte) (*FDREntry, error) {
	if len(sectorPayload) < 0x1c {
		return nil, fault.New(fault.Format, "fsys/ti99", nil)
	}
	p := sectorPayload
	status := p[0x0c]

	var clusters []Cluster
	for off := 0x1c; off+3 <= len(p); off += 3 {
		b0, b1, b2 := p[off], p[off+1], p[off+2]
		if b0 == 0 && b1 == 0 && b2 == 0 {
			break
		}
		start := int(b0) | (int(b1)&0x0f)<<8
		count := int(b1)>>4 | int(b2)<<4
		clusters = append(clusters, Cluster{Start: start, Count: count + 1})
	}

	return &FDREntry{
		Name:        strings.TrimRight(string(p[0:fdrNamePadLen]), " "),
		FileType:    ti99FileType(status),
		RecordCount: int(p[0x12]) | int(p[0x13])<<8,
		Clusters:    clusters,
	}, nil
}

func ti99FileType(status byte) fsys.FileType {
	if status&0x02 != 0 {
		return fsys.FileTypeProgram
	}
	if status&0x80 != 0 {
		return fsys.FileTypeRelative
	}
	return fsys.FileTypeSequential
}

// ReadFileData reads every sector named by entry's cluster list, in order,
// stopping after fsys.VisitedCap sectors even if more clusters remain (a
// malformed FDR could otherwise claim unbounded sectors).
func ReadFileData(c *container.Container, entry *FDREntry, sectorsPerTrack int) ([]byte, fsys.ChainError, error) {
	var out []byte
	visited := 0
	for _, cl := range entry.Clusters {
		for s := cl.Start; s < cl.Start+cl.Count; s++ {
			if visited >= fsys.VisitedCap {
				return out, fsys.ChainErrorTooLong, nil
			}
			visited++
			track, sector := lbaToTrackSector(s, sectorsPerTrack)
			img := c.Track(track, 0)
			if img == nil {
				return out, fsys.ChainErrorBroken, nil
			}
			sec := img.Sector(sector)
			if sec == nil {
				return out, fsys.ChainErrorBroken, nil
			}
			out = append(out, sec.Payload...)
		}
	}
	return out, fsys.ChainOK, nil
}

func lbaToTrackSector(lba, sectorsPerTrack int) (track, sector int) {
	if sectorsPerTrack <= 0 {
		sectorsPerTrack = 9
	}
	return lba / sectorsPerTrack, lba % sectorsPerTrack
}
