package decoder

import (
	"floppy/container"
	"floppy/fault"
)

// gcrDecodeTable maps each valid 5-bit GCR group to its 4-bit nibble; 0xff
// marks an invalid group (Commodore's 1541 GCR, the standard table shared
// by every CBM DOS variant).
var gcrDecodeTable = [32]byte{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0x08, 0x00, 0x01, 0xff, 0x0c, 0x04, 0x05,
	0xff, 0xff, 0x02, 0x03, 0xff, 0x0f, 0x06, 0x07,
	0xff, 0x09, 0x0a, 0x0b, 0xff, 0x0d, 0x0e, 0xff,
}

const gcrSyncHistory = 0x3ff // ten consecutive 1 bits mark a sync

// DecodeCommodoreGCRTrack scans one already-clocked Commodore GCR
// revolution for header+data sector blocks. Grounded conceptually on the
// same scan-for-marker/read-fixed-fields shape as DecodeMFMTrack, but the
// Commodore encoding uses a sync-bit run instead of a clock-violation byte
// and a 5-bit-group decode table instead of a byte-wide CRC mark.
func DecodeCommodoreGCRTrack(bits []bool, cylinder, head int) ([]container.SectorRecord, error) {
	r := &Reader{bits: bits, encoding: EncodingCommodoreGCR}
	var out []container.SectorRecord
	seen := make(map[int]bool)

	for !r.Done() {
		if !scanGCRSync(r) {
			break
		}
		blockType, fields, err := readGCRHeaderBlock(r)
		if err != nil {
			break
		}
		if blockType != 0x08 { // header block id
			continue
		}
		checksum, sector, track, id2, id1 := fields[0], fields[1], fields[2], fields[3], fields[4]
		if byte(sector)^byte(track)^id1^id2 != checksum {
			continue
		}
		if int(track) != cylinder || seen[int(sector)] {
			continue
		}

		if !scanGCRSync(r) {
			break
		}
		dataBlockType, payload, dataChecksum, err := readGCRDataBlock(r)
		if err != nil {
			break
		}
		if dataBlockType != 0x07 { // data block id
			continue
		}
		want := byte(0)
		for _, b := range payload {
			want ^= b
		}

		seen[int(sector)] = true
		out = append(out, container.SectorRecord{
			ID: container.SectorID{
				Cylinder: cylinder, Head: head,
				SectorNumber: int(sector), SizeCode: sizeCodeFromLength(len(payload)),
			},
			Payload: payload,
			Flags:   container.SectorFlags{CrcBad: want != dataChecksum},
		})
	}

	if len(out) == 0 {
		return nil, fault.At(fault.Format, "decoder/gcr", cylinder, head, nil)
	}
	return out, nil
}

// scanGCRSync advances until ten consecutive 1 channel-bits (a sync mark)
// have been consumed, leaving the reader at the first data bit afterward.
func scanGCRSync(r *Reader) bool {
	history := uint32(0)
	for {
		bit, err := r.readHalfBit()
		if err != nil {
			return false
		}
		history = ((history << 1) | uint32(bit)) & gcrSyncHistory
		if history == gcrSyncHistory {
			// consume any additional 1-bits that extend the sync run
			for {
				save := r.pos
				b, err := r.readHalfBit()
				if err != nil || b == 0 {
					r.pos = save
					return true
				}
			}
		}
	}
}

// readGCRGroup reads five raw channel bits and decodes them to a nibble.
func readGCRGroup(r *Reader) (byte, error) {
	var group byte
	for i := 0; i < 5; i++ {
		bit, err := r.readHalfBit()
		if err != nil {
			return 0, err
		}
		group = (group << 1) | byte(bit)
	}
	nibble := gcrDecodeTable[group]
	if nibble == 0xff {
		return 0, fault.New(fault.Format, "decoder/gcr", nil)
	}
	return nibble, nil
}

// readGCRByte decodes one byte from two nibble groups (high nibble first).
func readGCRByte(r *Reader) (byte, error) {
	hi, err := readGCRGroup(r)
	if err != nil {
		return 0, err
	}
	lo, err := readGCRGroup(r)
	if err != nil {
		return 0, err
	}
	return hi<<4 | lo, nil
}

// readGCRHeaderBlock reads the block-type byte plus the five header fields
// (checksum, sector, track, id2, id1) each GCR-encoded as a byte.
func readGCRHeaderBlock(r *Reader) (byte, [5]byte, error) {
	var fields [5]byte
	blockType, err := readGCRByte(r)
	if err != nil {
		return 0, fields, err
	}
	for i := range fields {
		fields[i], err = readGCRByte(r)
		if err != nil {
			return 0, fields, err
		}
	}
	return blockType, fields, nil
}

// readGCRDataBlock reads the block-type byte, a 256-byte payload, and its
// trailing checksum byte, each GCR-encoded.
func readGCRDataBlock(r *Reader) (byte, []byte, byte, error) {
	blockType, err := readGCRByte(r)
	if err != nil {
		return 0, nil, 0, err
	}
	payload := make([]byte, 256)
	for i := range payload {
		payload[i], err = readGCRByte(r)
		if err != nil {
			return 0, nil, 0, err
		}
	}
	checksum, err := readGCRByte(r)
	if err != nil {
		return 0, nil, 0, err
	}
	return blockType, payload, checksum, nil
}
