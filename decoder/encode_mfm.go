package decoder

import (
	"floppy/container"
	"floppy/fault"
)

// bitBuilder accumulates channel bits (clock and data cells) one at a time,
// the inverse of Reader's readHalfBit/readBit. Grounded on mfm/writer.go's
// Writer, generalized to emit []bool directly (the form pll/decoder already
// consume) instead of a packed byte buffer, and to stop appending once
// maxHalfBits is reached: writes past that point are dropped.
type bitBuilder struct {
	bits        []bool
	lastDataBit bool
	maxHalfBits int
}

func newBitBuilder(maxHalfBits int) *bitBuilder {
	return &bitBuilder{bits: make([]bool, 0, maxHalfBits), maxHalfBits: maxHalfBits}
}

func (b *bitBuilder) full() bool { return len(b.bits) >= b.maxHalfBits }

func (b *bitBuilder) writeHalfBit(v bool) {
	if b.full() {
		return
	}
	b.bits = append(b.bits, v)
}

// writeBit MFM-encodes one data bit as two channel cells: a one is encoded
// 01 unconditionally; a zero is encoded with its clock cell set only when
// neither neighbor is a one, per the standard MFM run-length rule.
func (b *bitBuilder) writeBit(dataBit bool) {
	if dataBit {
		b.writeHalfBit(false)
		b.writeHalfBit(true)
	} else {
		b.writeHalfBit(!b.lastDataBit)
		b.writeHalfBit(false)
	}
	b.lastDataBit = dataBit
}

func (b *bitBuilder) writeByte(data byte) {
	for i := 7; i >= 0; i-- {
		b.writeBit((data>>uint(i))&1 != 0)
	}
}

func (b *bitBuilder) writeGap(n int) {
	for i := 0; i < n; i++ {
		b.writeByte(0x4e)
	}
}

// writeMarker writes the 12-byte zero preamble followed by three copies of
// tag (0xa1 for an address/data mark, 0xc2 for the index mark). scanMFMMark
// finds a mark by its plain decoded byte value (0xa1a1a1 or 0xc2c2c2), not
// by any encoded clock violation, so this is ordinary writeByte: keeping
// the encoder symmetric with what Reader.readBit actually recovers matters
// more here than imitating a real controller's sync-mark electronics.
func (b *bitBuilder) writeMarker(tag byte) {
	for i := 0; i < 12; i++ {
		b.writeByte(0)
	}
	for i := 0; i < 3; i++ {
		b.writeByte(tag)
	}
}

// EncodeMFMTrack is the inverse of DecodeMFMTrack: it synthesizes a clocked
// MFM bit stream for one IBM PC track from decoded sectors, used to replay
// a sector-only container (one with no captured Flux) onto real media.
// Sectors missing from the slice (a gap left by a prior failed read) are
// written as a zero-filled payload so the track's physical layout still
// matches sectorsPerTrack.
//
// TODO: gap sizing below is the format's nominal values; it doesn't yet
// scale gaps to the track's actual bit-cell rate the way a real controller
// would for non-250kbps media.
func EncodeMFMTrack(sectors []container.SectorRecord, cylinder, head, sectorsPerTrack, sectorSize, maxHalfBits int) []bool {
	bySector := make(map[int]container.SectorRecord, len(sectors))
	for _, s := range sectors {
		bySector[s.ID.SectorNumber] = s
	}

	const indexGap = 50
	const headerGap = 22
	const sectorGap = 108

	b := newBitBuilder(maxHalfBits)
	b.writeGap(80)
	b.writeMarker(0xc2)
	b.writeByte(0xfc)
	b.writeGap(indexGap)

	for s := 1; s <= sectorsPerTrack && !b.full(); s++ {
		b.writeMarker(0xa1)
		b.writeByte(mfmAddressMarkTag)
		b.writeByte(byte(cylinder))
		b.writeByte(byte(head))
		b.writeByte(byte(s))
		sizeCode := sizeCodeFromBytes(sectorSize)
		b.writeByte(sizeCode)

		sum := crc16CCITTByte(0xb230, byte(cylinder))
		sum = crc16CCITTByte(sum, byte(head))
		sum = crc16CCITTByte(sum, byte(s))
		sum = crc16CCITTByte(sum, sizeCode)
		b.writeByte(byte(sum >> 8))
		b.writeByte(byte(sum))

		b.writeGap(headerGap)

		b.writeMarker(0xa1)
		dataTag := byte(mfmDataMarkTag)
		payload := make([]byte, sectorSize)
		if rec, ok := bySector[s]; ok {
			copy(payload, rec.Payload)
			if rec.Flags.Deleted {
				dataTag = mfmDeletedMarkTag
			}
		}
		b.writeByte(dataTag)
		for _, data := range payload {
			b.writeByte(data)
		}

		sum = crc16CCITTByte(0xcdb4, dataTag)
		sum = crc16CCITT(sum, payload)
		b.writeByte(byte(sum >> 8))
		b.writeByte(byte(sum))

		b.writeGap(sectorGap)
	}

	if remaining := maxHalfBits - len(b.bits); remaining > 0 {
		b.writeGap(remaining/16 + 1)
	}
	return b.bits
}

// EncodeTrack dispatches to the encoding-specific synthesizer, the inverse
// of DecodeTrack. Only MFM is implemented; FM and the GCR variants are
// read/verify-only until a write path for them is grounded the same way.
func EncodeTrack(encoding Encoding, sectors []container.SectorRecord, cylinder, head, sectorsPerTrack, sectorSize, maxHalfBits int) ([]bool, error) {
	switch encoding {
	case EncodingMFM:
		return EncodeMFMTrack(sectors, cylinder, head, sectorsPerTrack, sectorSize, maxHalfBits), nil
	default:
		return nil, fault.New(fault.Format, "decoder", nil)
	}
}

// sizeCodeFromBytes maps a sector payload size to the IBM PC size-code
// byte (128<<code == size), defaulting to code 2 (512 bytes) for any size
// it doesn't recognize rather than erroring, since an unrecognized size
// still needs a header written.
func sizeCodeFromBytes(size int) byte {
	for code := 0; code <= 7; code++ {
		if 128<<uint(code) == size {
			return byte(code)
		}
	}
	return 2
}
