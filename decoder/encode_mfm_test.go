package decoder

import (
	"testing"

	"floppy/container"
)

// trackCapacityHalfBits is the channel-bit length of the layout
// EncodeMFMTrack writes: the index preamble plus, per sector, both markers,
// the ID field with its CRC, the data field with its CRC, and both gaps.
func trackCapacityHalfBits(sectorsPerTrack, sectorSize int) int {
	const indexBytes = 80 + 15 + 1 + 50
	const perSectorOverhead = 15 + 1 + 4 + 2 + 22 + 15 + 1 + 2 + 108
	totalBytes := indexBytes + sectorsPerTrack*(perSectorOverhead+sectorSize)
	return totalBytes * 16
}

func TestEncodeMFMTrackRoundTripsThroughDecode(t *testing.T) {
	const sectorsPerTrack = 9
	const sectorSize = 512

	var sectors []container.SectorRecord
	for s := 1; s <= sectorsPerTrack; s++ {
		payload := make([]byte, sectorSize)
		for i := range payload {
			payload[i] = byte(s*7 + i)
		}
		sectors = append(sectors, container.SectorRecord{
			ID:      container.SectorID{Cylinder: 3, Head: 1, SectorNumber: s, SizeCode: 2},
			Payload: payload,
		})
	}

	maxHalfBits := trackCapacityHalfBits(sectorsPerTrack, sectorSize)
	bits := EncodeMFMTrack(sectors, 3, 1, sectorsPerTrack, sectorSize, maxHalfBits)

	decoded, err := DecodeMFMTrack(bits, 3, 1, sectorSize)
	if err != nil {
		t.Fatalf("DecodeMFMTrack: %v", err)
	}
	if len(decoded) != sectorsPerTrack {
		t.Fatalf("got %d decoded sectors, want %d", len(decoded), sectorsPerTrack)
	}

	bySector := make(map[int]container.SectorRecord, len(decoded))
	for _, d := range decoded {
		bySector[d.ID.SectorNumber] = d
	}
	for _, want := range sectors {
		got, ok := bySector[want.ID.SectorNumber]
		if !ok {
			t.Fatalf("sector %d missing after round trip", want.ID.SectorNumber)
		}
		if got.Flags.CrcBad {
			t.Errorf("sector %d flagged CrcBad after round trip", want.ID.SectorNumber)
		}
		if string(got.Payload) != string(want.Payload) {
			t.Errorf("sector %d payload mismatch after round trip", want.ID.SectorNumber)
		}
	}
}

func TestEncodeMFMTrackFillsMissingSectorsWithZeros(t *testing.T) {
	sectors := []container.SectorRecord{
		{ID: container.SectorID{Cylinder: 0, Head: 0, SectorNumber: 2, SizeCode: 2}, Payload: make([]byte, 512)},
	}
	maxHalfBits := trackCapacityHalfBits(3, 512)
	bits := EncodeMFMTrack(sectors, 0, 0, 3, 512, maxHalfBits)

	decoded, err := DecodeMFMTrack(bits, 0, 0, 512)
	if err != nil {
		t.Fatalf("DecodeMFMTrack: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("got %d sectors, want 3 (including zero-filled gaps)", len(decoded))
	}
}
