package decoder

import (
	"testing"

	"floppy/container"
)

// encodeMFMBit appends the channel-bit pair for one data bit, tracking the
// previous data bit so the clock bit can be derived the way an MFM encoder
// would (clock = NOR of previous and current data bit).
func encodeMFMBit(bits []bool, prevData, data bool) []bool {
	clock := !prevData && !data
	return append(bits, clock, data)
}

func encodeMFMByte(bits []bool, prevLastBit bool, b byte) ([]bool, bool) {
	for i := 7; i >= 0; i-- {
		bit := (b>>uint(i))&1 == 1
		bits = encodeMFMBit(bits, prevLastBit, bit)
		prevLastBit = bit
	}
	return bits, prevLastBit
}

// writeSync appends a 0x00 gap byte followed by three 0xA1 sync bytes,
// reproducing the 00-a1-a1-a1 pattern DecodeMFMTrack's scanMFMMark looks
// for in the decoded data-bit history.
func writeSync(bits []bool, last bool) ([]bool, bool) {
	bits, last = encodeMFMByte(bits, last, 0x00)
	for i := 0; i < 3; i++ {
		bits, last = encodeMFMByte(bits, last, 0xa1)
	}
	return bits, last
}

// buildMFMSector encodes one IBM PC sector (address mark + header + data
// mark + payload) into a clocked channel-bit stream, mirroring what a real
// MFM writer emits and what DecodeMFMTrack expects as input.
func buildMFMSector(cyl, head, sector, sizeCode int, payload []byte) []bool {
	var bits []bool
	last := false

	bits, last = writeSync(bits, last)

	header := []byte{byte(cyl), byte(head), byte(sector), byte(sizeCode)}
	crc := crc16CCITTByte(0xb230, header[0])
	crc = crc16CCITTByte(crc, header[1])
	crc = crc16CCITTByte(crc, header[2])
	crc = crc16CCITTByte(crc, header[3])

	bits, last = encodeMFMByte(bits, last, mfmAddressMarkTag)
	for _, b := range header {
		bits, last = encodeMFMByte(bits, last, b)
	}
	bits, last = encodeMFMByte(bits, last, byte(crc>>8))
	bits, last = encodeMFMByte(bits, last, byte(crc))

	bits, last = writeSync(bits, last)
	bits, last = encodeMFMByte(bits, last, mfmDataMarkTag)

	dataCRC := crc16CCITTByte(0xcdb4, byte(mfmDataMarkTag))
	dataCRC = crc16CCITT(dataCRC, payload)
	for _, b := range payload {
		bits, last = encodeMFMByte(bits, last, b)
	}
	bits, _ = encodeMFMByte(bits, last, byte(dataCRC>>8))
	bits, _ = encodeMFMByte(bits, last, byte(dataCRC))

	return bits
}

func TestDecodeMFMTrackRoundTrip(t *testing.T) {
	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i)
	}
	bits := buildMFMSector(2, 0, 1, 2, payload)

	sectors, err := DecodeMFMTrack(bits, 2, 0, 512)
	if err != nil {
		t.Fatalf("DecodeMFMTrack: %v", err)
	}
	if len(sectors) != 1 {
		t.Fatalf("got %d sectors, want 1", len(sectors))
	}
	if sectors[0].Flags.CrcBad {
		t.Fatalf("sector flagged CrcBad unexpectedly")
	}
	if string(sectors[0].Payload) != string(payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestReconcilePrefersCrcGood(t *testing.T) {
	bad := container.SectorRecord{
		ID:      container.SectorID{SectorNumber: 1},
		Payload: []byte{0, 0},
		Flags:   container.SectorFlags{CrcBad: true},
	}
	good := container.SectorRecord{
		ID:      container.SectorID{SectorNumber: 1},
		Payload: []byte{1, 2},
	}

	merged := Reconcile([][]container.SectorRecord{{bad}, {good}}, nil)
	if len(merged) != 1 {
		t.Fatalf("got %d merged sectors, want 1", len(merged))
	}
	if merged[0].Flags.CrcBad {
		t.Fatalf("Reconcile picked the CRC-bad candidate")
	}
}

func TestReconcilePrefersHigherConfidenceAmongCrcGood(t *testing.T) {
	low := container.SectorRecord{ID: container.SectorID{SectorNumber: 1}, Payload: []byte{1, 1}}
	high := container.SectorRecord{ID: container.SectorID{SectorNumber: 1}, Payload: []byte{2, 2}}

	merged := Reconcile([][]container.SectorRecord{{low}, {high}}, []float64{0.2, 0.9})
	if len(merged) != 1 {
		t.Fatalf("got %d merged sectors, want 1", len(merged))
	}
	if string(merged[0].Payload) != string(high.Payload) {
		t.Fatalf("Reconcile picked payload %v, want the higher-confidence revolution's %v", merged[0].Payload, high.Payload)
	}
}

func TestReconcileMajorityVotesCrcBadBytes(t *testing.T) {
	a := container.SectorRecord{
		ID: container.SectorID{SectorNumber: 5}, Payload: []byte{0xAA, 0x01, 0xFF},
		Flags: container.SectorFlags{CrcBad: true},
	}
	b := container.SectorRecord{
		ID: container.SectorID{SectorNumber: 5}, Payload: []byte{0xAA, 0x02, 0xFF},
		Flags: container.SectorFlags{CrcBad: true},
	}
	c := container.SectorRecord{
		ID: container.SectorID{SectorNumber: 5}, Payload: []byte{0xBB, 0x02, 0xFF},
		Flags: container.SectorFlags{CrcBad: true},
	}

	merged := Reconcile([][]container.SectorRecord{{a}, {b}, {c}}, nil)
	if len(merged) != 1 {
		t.Fatalf("got %d merged sectors, want 1", len(merged))
	}
	if !merged[0].Flags.CrcBad {
		t.Fatalf("expected the merged record to stay flagged CrcBad")
	}
	want := []byte{0xAA, 0x02, 0xFF} // byte 0: AA,AA,BB -> AA; byte 1: 01,02,02 -> 02; byte 2: unanimous FF
	if string(merged[0].Payload) != string(want) {
		t.Fatalf("majority-voted payload = % X, want % X", merged[0].Payload, want)
	}
}
