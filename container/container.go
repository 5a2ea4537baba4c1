// Package container implements bit-exact parsing and writing of the
// on-wire floppy container formats: SCP, HFE, G64, D64, T64, JV3, VSF, SID,
// CVT. Every parser consumes its input exclusively through ioprim.Cursor;
// raw pointer/length pairs never appear at a parser's API boundary.
package container

import (
	"floppy/flux"
	"floppy/geometry"
)

// Variant identifies a concrete on-wire container format.
type Variant int

const (
	VariantUnknown Variant = iota
	VariantD64
	VariantG64
	VariantSCP
	VariantHFE
	VariantT64
	VariantJV3
	VariantVSF
	VariantSID
	VariantCVT
)

func (v Variant) String() string {
	switch v {
	case VariantD64:
		return "D64"
	case VariantG64:
		return "G64"
	case VariantSCP:
		return "SCP"
	case VariantHFE:
		return "HFE"
	case VariantT64:
		return "T64"
	case VariantJV3:
		return "JV3"
	case VariantVSF:
		return "VSF"
	case VariantSID:
		return "SID"
	case VariantCVT:
		return "CVT"
	default:
		return "Unknown"
	}
}

// SectorID identifies one sector's on-disk address. SectorNumber is the
// on-disk ID and may be non-sequential; SizeCode maps 0->128, 1->256,
// 2->512, 3->1024 bytes per spec.
type SectorID struct {
	Cylinder     int
	Head         int
	SectorNumber int
	SizeCode     int
}

// SizeFromCode maps a SizeCode to its byte length, or 0 if the code is
// outside 0..3.
func SizeFromCode(code int) int {
	switch code {
	case 0:
		return 128
	case 1:
		return 256
	case 2:
		return 512
	case 3:
		return 1024
	default:
		return 0
	}
}

// SectorFlags carries the per-sector anomaly bits the decoder and reconciler
// set (§4.F, §7).
type SectorFlags struct {
	Deleted bool
	CrcBad  bool
	Weak    bool
}

// SectorRecord is one decoded or synthesized sector.
//
// Invariant: len(Payload) == SizeFromCode(ID.SizeCode).
type SectorRecord struct {
	ID                SectorID
	Payload           []byte
	Flags             SectorFlags
	SourceRevolution  int
}

// TrackImage is everything known about one (cylinder, head): decoded
// sectors, an optional raw encoded-cell bit stream, and optional captured
// flux revolutions (up to 5). If both Bits and Sectors are present,
// re-decoding Bits must reproduce Sectors byte-for-byte (§3 invariant).
type TrackImage struct {
	Sectors []SectorRecord
	Bits    []byte             // raw encoded-cell bitstream, MSB-first; nil if not captured
	Flux    []flux.Revolution  // up to 5 revolutions; nil if not captured
}

// TrackKey addresses one TrackImage within a Container.
type TrackKey struct {
	Cylinder int
	Head     int
}

// Container is the in-memory form of a parsed/writable disk image.
type Container struct {
	Variant  Variant
	Geometry geometry.Geometry
	Tracks   map[TrackKey]*TrackImage
	Errata   map[ErrataKey]ErrorCode
	Metadata map[string]string

	dirty bool
}

// ErrataKey addresses a per-sector error annotation.
type ErrataKey struct {
	Cylinder int
	Head     int
	Sector   int
}

// ErrorCode is an opaque per-sector error tag recorded in Container.Errata.
type ErrorCode int

const (
	ErrorNone ErrorCode = iota
	ErrorCrcBad
	ErrorDeleted
	ErrorMissing
)

// NewContainer builds an empty Container for the given variant/geometry.
func NewContainer(v Variant, g geometry.Geometry) *Container {
	return &Container{
		Variant:  v,
		Geometry: g,
		Tracks:   make(map[TrackKey]*TrackImage),
		Errata:   make(map[ErrataKey]ErrorCode),
		Metadata: make(map[string]string),
	}
}

// Track returns the TrackImage at (cyl, head), or nil if absent.
func (c *Container) Track(cyl, head int) *TrackImage {
	return c.Tracks[TrackKey{cyl, head}]
}

// SetTrack installs img at (cyl, head) and marks the container dirty.
func (c *Container) SetTrack(cyl, head int, img *TrackImage) {
	c.Tracks[TrackKey{cyl, head}] = img
	c.dirty = true
}

// Dirty reports whether the container has been mutated since it was opened
// or last saved.
func (c *Container) Dirty() bool { return c.dirty }

// MarkClean clears the dirty bit (every parser calls it once the parsed
// tracks are installed).
func (c *Container) MarkClean() { c.dirty = false }

// Sector looks up one sector by its on-disk ID within a track, returning nil
// if not present.
func (img *TrackImage) Sector(sectorNumber int) *SectorRecord {
	for i := range img.Sectors {
		if img.Sectors[i].ID.SectorNumber == sectorNumber {
			return &img.Sectors[i]
		}
	}
	return nil
}
