package container

import (
	"testing"

	"floppy/fault"
	"floppy/flux"
	"floppy/geometry"
)

// buildSCPTrack assembles one TRK block (one revolution) with the given
// trackLengthCells field and transitionCount actual cells, and places it at
// tableOff's 4-byte table entry pointing past the header.
func buildSCPTrack(headerAndTable []byte, trackLengthCells uint32, transitionCount int, tableOff int) []byte {
	trackDataOff := len(headerAndTable)

	cellData := make([]byte, transitionCount*2)
	for i := 0; i < transitionCount; i++ {
		cellData[i*2] = 0
		cellData[i*2+1] = 160
	}
	tdh := []byte("TRK")
	tdh = append(tdh, 0)
	entry := make([]byte, 12)
	putU32LE(entry[0:4], 1000)
	putU32LE(entry[4:8], trackLengthCells)
	putU32LE(entry[8:12], 16) // dataOffsetRel: right after the 4-byte magic + one 12-byte entry
	tdh = append(tdh, entry...)
	tdh = append(tdh, cellData...)

	buf := append(headerAndTable, tdh...)
	putU32LE(buf[tableOff:tableOff+4], uint32(trackDataOff))
	return buf
}

func TestParseSCPRejectsTooManyRevolutions(t *testing.T) {
	buf := make([]byte, scpHeaderSize+4)
	copy(buf, scpSignature)
	buf[5] = 33 // num_revs
	buf[6] = 0
	buf[7] = 0
	buf[8] = scpFlagSingleSided

	_, err := ParseSCP(buf)
	if !fault.Is(err, fault.LimitExceeded) {
		t.Fatalf("ParseSCP with num_revs=33 = %v, want LimitExceeded", err)
	}
}

func TestParseSCPAcceptsRevolutionCap(t *testing.T) {
	header := make([]byte, scpHeaderSize+4)
	copy(header, scpSignature)
	header[5] = scpMaxRevolutions
	header[6] = 0
	header[7] = 0
	header[8] = scpFlagSingleSided

	// One TRK block carrying all 32 revolution descriptors, each pointing at
	// the same four cells placed after the descriptor table.
	trackDataOff := len(header)
	tdh := []byte("TRK")
	tdh = append(tdh, 0)
	dataOffsetRel := 4 + scpMaxRevolutions*12
	for rev := 0; rev < scpMaxRevolutions; rev++ {
		entry := make([]byte, 12)
		putU32LE(entry[0:4], 1000)
		putU32LE(entry[4:8], 4)
		putU32LE(entry[8:12], uint32(dataOffsetRel))
		tdh = append(tdh, entry...)
	}
	tdh = append(tdh, 0, 160, 0, 160, 0, 160, 0, 160)
	buf := append(header, tdh...)
	putU32LE(buf[scpTrackTableBase:scpTrackTableBase+4], uint32(trackDataOff))

	if _, err := ParseSCP(buf); err != nil {
		t.Fatalf("ParseSCP at the 32-revolution cap: %v", err)
	}
}

func TestParseSCPRejectsOversizedTrackLength(t *testing.T) {
	header := make([]byte, scpHeaderSize+4)
	copy(header, scpSignature)
	header[5] = 1
	header[6] = 0
	header[7] = 0
	header[8] = scpFlagSingleSided
	buf := buildSCPTrack(header, scpMaxTrackLengthWords+1, 0, scpTrackTableBase)

	_, err := ParseSCP(buf)
	if !fault.Is(err, fault.LimitExceeded) {
		t.Fatalf("ParseSCP with data_length_words=%d = %v, want LimitExceeded", scpMaxTrackLengthWords+1, err)
	}
}

func TestParseSCPExtendedOffsetTable(t *testing.T) {
	header := make([]byte, scpExtendedTableOffset+scpExtendedTableCount*4)
	copy(header, scpSignature)
	header[5] = 1
	header[6] = 0
	header[7] = 0
	header[8] = scpFlagSingleSided | scpFlagExtendedOffsets
	buf := buildSCPTrack(header, 4, 4, scpExtendedTableOffset)

	c, err := ParseSCP(buf)
	if err != nil {
		t.Fatalf("ParseSCP with extended offset table: %v", err)
	}
	img := c.Track(0, 0)
	if img == nil || len(img.Flux) != 1 || len(img.Flux[0].TransitionsNS) != 4 {
		t.Fatalf("track not decoded from the extended table: %+v", img)
	}
}

func TestParseSCPRoundTripsWrittenFlux(t *testing.T) {
	g := geometry.Geometry{Cylinders: 1, Heads: 1, ZeroIndexed: true}
	c := NewContainer(VariantSCP, g)
	rev := flux.Revolution{TransitionsNS: []uint32{4000, 4000, 4000}, IndexPeriodNS: 12000}
	c.SetTrack(0, 0, &TrackImage{Flux: []flux.Revolution{rev}})

	encoded, err := WriteSCP(c)
	if err != nil {
		t.Fatalf("WriteSCP: %v", err)
	}
	decoded, err := ParseSCP(encoded)
	if err != nil {
		t.Fatalf("ParseSCP: %v", err)
	}
	img := decoded.Track(0, 0)
	if img == nil || len(img.Flux) != 1 {
		t.Fatalf("expected one round-tripped revolution, got %+v", img)
	}
	if len(img.Flux[0].TransitionsNS) != len(rev.TransitionsNS) {
		t.Fatalf("transition count = %d, want %d", len(img.Flux[0].TransitionsNS), len(rev.TransitionsNS))
	}
}
