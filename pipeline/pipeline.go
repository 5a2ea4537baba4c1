// Package pipeline wires the per-revolution stages (flux capture, PLL bit
// recovery, decoder dispatch, multi-revolution reconciliation) into a
// single per-track read, and the inverse single-pass encode for write.
// Grounded on the teacher's read.go, which drove a capture-then-decode
// loop per track directly from the adapter's Read call; here the same
// shape is generalized across pll.Algorithm/Preset choices and decoder
// encodings instead of being hardwired to one format.
package pipeline

import (
	"context"

	"floppy/container"
	"floppy/decoder"
	"floppy/fault"
	"floppy/flux"
	"floppy/geometry"
	"floppy/pll"
)

// TrackSpec names the decode parameters for one track: which PLL preset
// clocks its flux, which bit encoding the decoder applies, and its sector
// size (0 for variable/self-describing encodings like Commodore GCR).
type TrackSpec struct {
	PresetName string
	Encoding   decoder.Encoding
	Algorithm  pll.Algorithm
	SectorSize int
}

// ReadTrack captures up to revolutions revolutions of flux from src at
// (cylinder, head), clocks each through a fresh pll.State, decodes sectors
// per revolution, and reconciles them into one sector set plus the raw
// flux (kept for formats, like SCP, that round-trip flux rather than
// decoded sectors).
func ReadTrack(ctx context.Context, src flux.Source, cylinder, head, revolutions int, spec TrackSpec) (*container.TrackImage, error) {
	preset, ok := pll.PresetFor(spec.PresetName)
	if !ok {
		return nil, fault.At(fault.Format, "pipeline", cylinder, head, nil)
	}

	revs, err := src.ReadFlux(ctx, revolutions)
	if err != nil {
		return nil, fault.At(fault.IO, "pipeline", cylinder, head, err)
	}

	var perRevolution [][]container.SectorRecord
	var confidences []float64
	for _, rev := range revs {
		state := pll.NewState(spec.Algorithm, preset, rev.AbsoluteTimesNS())
		var bits []bool
		for !state.IsDone() {
			bits = append(bits, state.NextBit())
		}
		sectors, err := decoder.DecodeTrack(spec.Encoding, bits, cylinder, head, spec.SectorSize)
		if err != nil {
			continue
		}
		perRevolution = append(perRevolution, sectors)
		confidences = append(confidences, state.Snapshot().Confidence(preset))
	}

	reconciled := decoder.Reconcile(perRevolution, confidences)
	return &container.TrackImage{Sectors: reconciled, Flux: revs}, nil
}

// ReadDisk walks every (cylinder, head) the geometry names, building a
// Container of variant v. A track whose ReadTrack call errors is recorded
// with no sectors rather than aborting the whole read, so a partially
// unreadable disk still yields a usable image alongside the per-track
// error the caller should surface through package session.
func ReadDisk(ctx context.Context, src flux.Source, v container.Variant, cylinders, heads, revolutions int, specFor func(cyl int) TrackSpec) (*container.Container, map[[2]int]error) {
	g := geometry.Geometry{Cylinders: cylinders, Heads: heads, ZeroIndexed: true}
	c := container.NewContainer(v, g)
	errs := make(map[[2]int]error)

	for cyl := 0; cyl < cylinders; cyl++ {
		if err := src.Seek(ctx, cyl); err != nil {
			errs[[2]int{cyl, 0}] = err
			continue
		}
		for head := 0; head < heads; head++ {
			if err := src.SelectHead(ctx, head); err != nil {
				errs[[2]int{cyl, head}] = err
				continue
			}
			img, err := ReadTrack(ctx, src, cyl, head, revolutions, specFor(cyl))
			if err != nil {
				errs[[2]int{cyl, head}] = err
				continue
			}
			c.SetTrack(cyl, head, img)
		}
	}
	return c, errs
}

// WriteDisk is the non-transactional disk write: it shares revolutionFor
// with NewWriteTransaction (pipeline/hardwarewriter.go) but writes straight
// through with no pre-image capture or rollback on failure. cmd/write.go
// uses NewWriteTransaction instead so a failed track can be undone; WriteDisk
// stays available for callers that don't need that guarantee (e.g. a
// blank-format pass, where there's no prior content worth preserving).
//
// WriteDisk seeks/selects/writes every track in c back to dst. A track that
// was captured as flux (SCP-style round trip) replays its first recorded
// revolution verbatim. A track with only decoded Sectors (e.g. a D64 or
// JV3 file parsed from disk, never captured from hardware) is re-encoded
// into synthetic flux via spec.Encoding's EncodeTrack first, since a sector
// payload alone is not something a flux.Source can write. A track with
// neither is skipped outright. Returns the per-track write errors keyed
// the same way ReadDisk keys its read errors.
func WriteDisk(ctx context.Context, dst flux.Source, c *container.Container, specFor func(cyl int) TrackSpec) map[[2]int]error {
	errs := make(map[[2]int]error)
	for key, img := range c.Tracks {
		if img == nil {
			continue
		}
		rev, err := revolutionFor(img, c.Geometry, key.Cylinder, key.Head, specFor)
		if err != nil {
			continue
		}

		if err := dst.Seek(ctx, key.Cylinder); err != nil {
			errs[[2]int{key.Cylinder, key.Head}] = err
			continue
		}
		if err := dst.SelectHead(ctx, key.Head); err != nil {
			errs[[2]int{key.Cylinder, key.Head}] = err
			continue
		}
		if err := dst.WriteFlux(ctx, rev); err != nil {
			errs[[2]int{key.Cylinder, key.Head}] = err
		}
	}
	return errs
}

// ResolveRevolution is revolutionFor's exported form, used by HardwareWriter
// (and available to any caller that needs "the flux this track would write
// as") without requiring a full WriteDisk pass.
func ResolveRevolution(img *container.TrackImage, g geometry.Geometry, cylinder, head int, specFor func(cyl int) TrackSpec) (flux.Revolution, error) {
	return revolutionFor(img, g, cylinder, head, specFor)
}

// revolutionFor returns the flux revolution to write for one track: img's
// own captured revolution if present, otherwise a freshly synthesized one
// built from img.Sectors. Returns an error (silently skipping the track)
// when the track has nothing to write from, or its encoding has no writer.
func revolutionFor(img *container.TrackImage, g geometry.Geometry, cylinder, head int, specFor func(cyl int) TrackSpec) (flux.Revolution, error) {
	if len(img.Flux) > 0 {
		return img.Flux[0], nil
	}
	if len(img.Sectors) == 0 || specFor == nil {
		return flux.Revolution{}, fault.New(fault.Format, "pipeline", nil)
	}

	spec := specFor(cylinder)
	preset, ok := pll.PresetFor(spec.PresetName)
	if !ok {
		return flux.Revolution{}, fault.At(fault.Format, "pipeline", cylinder, 0, nil)
	}
	sectorsPerTrack, err := g.SectorsInTrack(cylinder)
	if err != nil {
		return flux.Revolution{}, err
	}
	sectorSize := spec.SectorSize
	if sectorSize == 0 {
		sectorSize = g.SectorSize
	}

	maxHalfBits := trackCapacityHalfBits(sectorsPerTrack, sectorSize)
	bits, err := decoder.EncodeTrack(spec.Encoding, img.Sectors, cylinder, head, sectorsPerTrack, sectorSize, maxHalfBits)
	if err != nil {
		return flux.Revolution{}, err
	}
	return synthesizeRevolution(bits, preset.BitCellNS), nil
}

// trackCapacityHalfBits estimates the channel-bit length of an IBM PC MFM
// track holding sectorsPerTrack sectors of sectorSize bytes, covering the
// index gap, every per-sector marker/header/CRC/gap overhead, and the data
// field itself. Matches the layout EncodeMFMTrack actually writes.
func trackCapacityHalfBits(sectorsPerTrack, sectorSize int) int {
	const indexBytes = 80 + 15 + 1 + 50
	const perSectorOverhead = 15 + 1 + 4 + 2 + 22 + 15 + 1 + 2 + 108
	totalBytes := indexBytes + sectorsPerTrack*(perSectorOverhead+sectorSize)
	return totalBytes * 16
}

// synthesizeRevolution converts a clocked channel-bit stream back into
// flux transition timings, the inverse of pll.State's bit recovery: each
// "1" channel bit marks a flux reversal, its TransitionsNS entry being the
// number of bit cells since the previous reversal times cellNS.
func synthesizeRevolution(bits []bool, cellNS float64) flux.Revolution {
	var transitions []uint32
	var cellsSinceLast float64
	for _, bit := range bits {
		cellsSinceLast++
		if bit {
			transitions = append(transitions, uint32(cellsSinceLast*cellNS))
			cellsSinceLast = 0
		}
	}
	if cellsSinceLast > 0 {
		transitions = append(transitions, uint32(cellsSinceLast*cellNS))
	}
	return flux.Revolution{TransitionsNS: transitions, IndexPeriodNS: uint32(float64(len(bits)) * cellNS)}
}
