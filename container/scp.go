package container

import (
	"floppy/fault"
	"floppy/flux"
	"floppy/geometry"
	"floppy/ioprim"
)

const scpSignature = "SCP"

// SCP file header layout, offsets in bytes. Grounded on the SuperCard Pro
// transport's FluxInfo/FluxData structures in supercardpro/supercardpro.go
// (index time + bitcell count per revolution), applied here to the on-disk
// SCP container rather than the live USB stream.
const (
	scpHeaderSize     = 16
	scpTrackTableBase = 16

	// scpMaxRevolutions is the security cap on the header's revolution
	// count; 33 or more is rejected rather than decoded.
	scpMaxRevolutions = 32

	// scpDefaultWrittenRevolutions is the revolution count WriteSCP puts in
	// a freshly-encoded header; unrelated to the parse-time cap above.
	scpDefaultWrittenRevolutions = 5

	// scpMaxTrackLengthWords is the security cap on one revolution's
	// data_length_words field.
	scpMaxTrackLengthWords = 500_000

	// scpExtendedTableOffset and scpExtendedTableCount describe the
	// alternate track-offset table flag bit 0x40 selects: 168 entries at a
	// fixed absolute offset instead of the table packed into the header.
	scpExtendedTableOffset = 0x80
	scpExtendedTableCount  = 168

	scpFlagSingleSided     = 0x02
	scpFlagExtendedOffsets = 0x40
)

// ParseSCP parses an SCP flux-capture image into a Container whose tracks
// carry raw flux.Revolution data (no decode performed here; package pll
// and package decoder run downstream on demand).
func ParseSCP(data []byte) (*Container, error) {
	cur := ioprim.NewCursor(data)
	sig, err := cur.Slice(0, 3)
	if err != nil || string(sig) != scpSignature {
		return nil, fault.New(fault.Format, "container/scp", nil)
	}
	numRevolutions, err := cur.U8(5)
	if err != nil {
		return nil, fault.New(fault.Format, "container/scp", err)
	}
	startTrack, err := cur.U8(6)
	if err != nil {
		return nil, fault.New(fault.Format, "container/scp", err)
	}
	endTrack, err := cur.U8(7)
	if err != nil {
		return nil, fault.New(fault.Format, "container/scp", err)
	}
	flags, err := cur.U8(8)
	if err != nil {
		return nil, fault.New(fault.Format, "container/scp", err)
	}
	singleSided := flags&scpFlagSingleSided != 0
	extendedOffsets := flags&scpFlagExtendedOffsets != 0

	heads := 2
	if singleSided {
		heads = 1
	}
	g := geometry.Geometry{
		Cylinders: int(endTrack) + 1, Heads: heads, SectorSize: 0, ZeroIndexed: true,
	}
	c := NewContainer(VariantSCP, g)

	if numRevolutions > scpMaxRevolutions {
		return nil, fault.New(fault.LimitExceeded, "container/scp", nil)
	}
	revCount := int(numRevolutions)
	if revCount == 0 {
		revCount = 1
	}

	tableBase := scpTrackTableBase
	if extendedOffsets {
		tableBase = scpExtendedTableOffset
	}

	for trackIdx := int(startTrack); trackIdx <= int(endTrack); trackIdx++ {
		if extendedOffsets && trackIdx >= scpExtendedTableCount {
			return nil, fault.At(fault.Format, "container/scp", trackIdx, 0, nil)
		}
		tableOff, err := ioprim.CheckedAddInt(tableBase, trackIdx*4)
		if err != nil {
			return nil, fault.At(fault.Format, "container/scp", trackIdx, 0, err)
		}
		trackDataOff, err := cur.U32LE(tableOff)
		if err != nil || trackDataOff == 0 {
			continue
		}

		tdhOff := int(trackDataOff)
		tdhSig, err := cur.Slice(tdhOff, 3)
		if err != nil || string(tdhSig) != "TRK" {
			return nil, fault.At(fault.Format, "container/scp", trackIdx, 0, nil)
		}

		var revs []flux.Revolution
		for rev := 0; rev < revCount; rev++ {
			entryOff := tdhOff + 4 + rev*12
			indexTimeTicks, err := cur.U32LE(entryOff)
			if err != nil {
				break
			}
			trackLengthCells, err := cur.U32LE(entryOff + 4)
			if err != nil {
				break
			}
			if trackLengthCells > scpMaxTrackLengthWords {
				return nil, fault.At(fault.LimitExceeded, "container/scp", trackIdx, 0, nil)
			}
			dataOffsetRel, err := cur.U32LE(entryOff + 8)
			if err != nil {
				break
			}

			dataOff, err := ioprim.CheckedAddInt(tdhOff, int(dataOffsetRel))
			if err != nil {
				return nil, fault.At(fault.Overflow, "container/scp", trackIdx, 0, err)
			}
			cellBytes, err := cur.Slice(dataOff, int(trackLengthCells)*2)
			if err != nil {
				break
			}
			transitions := make([]uint32, trackLengthCells)
			for i := range transitions {
				hi := cellBytes[i*2]
				lo := cellBytes[i*2+1]
				// SCP cell values are 16-bit big-endian tick counts at 25ns
				// resolution.
				transitions[i] = (uint32(hi)<<8 | uint32(lo)) * 25
			}
			revs = append(revs, flux.Revolution{
				TransitionsNS: transitions,
				IndexPeriodNS: indexTimeTicks * 25,
			})
		}

		cyl, head := trackIdx, 0
		if !singleSided {
			cyl, head = trackIdx/2, trackIdx%2
		}
		c.SetTrack(cyl, head, &TrackImage{Flux: revs})
	}
	c.MarkClean()
	return c, nil
}

// WriteSCP serializes a Container's captured flux back into SCP bytes.
// Only tracks with a non-nil Flux are written; tracks present only as
// decoded Sectors cannot be re-encoded to SCP (flux capture is lossy in
// that direction) and are skipped.
func WriteSCP(c *Container) ([]byte, error) {
	maxTrackIdx := c.Geometry.Cylinders*c.Geometry.Heads - 1
	header := make([]byte, scpHeaderSize+(maxTrackIdx+1)*4)
	copy(header, scpSignature)
	header[5] = scpDefaultWrittenRevolutions
	header[6] = 0
	header[7] = byte(maxTrackIdx)
	if c.Geometry.Heads == 1 {
		header[8] = 0x02
	}

	var body []byte
	cursor := len(header)

	for cyl := 0; cyl < c.Geometry.Cylinders; cyl++ {
		for head := 0; head < c.Geometry.Heads; head++ {
			img := c.Track(cyl, head)
			if img == nil || img.Flux == nil {
				continue
			}
			trackIdx := cyl
			if c.Geometry.Heads > 1 {
				trackIdx = cyl*2 + head
			}

			tdh := []byte("TRK")
			tdh = append(tdh, 0)
			var revData []byte
			revHeaders := make([]byte, 0, len(img.Flux)*12)
			dataOff := 4 + len(img.Flux)*12

			for _, rev := range img.Flux {
				cellData := make([]byte, len(rev.TransitionsNS)*2)
				for i, ns := range rev.TransitionsNS {
					ticks := ns / 25
					cellData[i*2] = byte(ticks >> 8)
					cellData[i*2+1] = byte(ticks)
				}
				entry := make([]byte, 12)
				putU32LE(entry[0:4], rev.IndexPeriodNS/25)
				putU32LE(entry[4:8], uint32(len(rev.TransitionsNS)))
				putU32LE(entry[8:12], uint32(dataOff))
				revHeaders = append(revHeaders, entry...)
				revData = append(revData, cellData...)
				dataOff += len(cellData)
			}
			tdh = append(tdh, revHeaders...)
			tdh = append(tdh, revData...)

			tableOff := scpTrackTableBase + trackIdx*4
			putU32LE(header[tableOff:tableOff+4], uint32(cursor))
			body = append(body, tdh...)
			cursor += len(tdh)
		}
	}

	return append(header, body...), nil
}

func putU32LE(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}
