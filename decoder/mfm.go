package decoder

import (
	"floppy/container"
	"floppy/fault"
)

const mfmMarkerHistory = 0x13713713

// addressMark/dataMark are the IBM PC MFM mark byte values that follow an
// A1A1A1 (address) or C2C2C2-adjacent sync pattern once the marker's clock
// violation has been consumed.
const (
	mfmAddressMarkTag = 0xfe
	mfmDataMarkTag    = 0xfb
	mfmDeletedMarkTag = 0xf8
)

// DecodeMFMTrack scans one already-clocked MFM revolution for IBM PC
// sectors, sized sectorSize bytes each. Grounded on Reader.ReadSectorIBMPC
// and Reader.scanIBMPC, generalized to return every sector found (instead
// of one at a time keyed by caller loop) as container.SectorRecord values,
// annotated with CrcBad/Deleted flags rather than discarding bad sectors.
func DecodeMFMTrack(bits []bool, cylinder, head, sectorSize int) ([]container.SectorRecord, error) {
	r := NewReader(bits, EncodingMFM)
	var out []container.SectorRecord
	seen := make(map[int]bool)

	for !r.Done() {
		tag, err := scanMFMMark(r)
		if err != nil {
			break
		}
		if tag != mfmAddressMarkTag {
			continue
		}

		header, err := r.ReadBytes(6)
		if err != nil {
			break
		}
		readCyl, readHead, sector, size := header[0], header[1], header[2], header[3]
		headerSum := uint16(header[4])<<8 | uint16(header[5])

		want := crc16CCITTByte(0xb230, readCyl)
		want = crc16CCITTByte(want, readHead)
		want = crc16CCITTByte(want, sector)
		want = crc16CCITTByte(want, size)
		if want != headerSum {
			continue
		}
		if int(readCyl) != cylinder || int(readHead) != head {
			continue
		}
		if seen[int(sector)] {
			continue
		}

		dataTag, err := scanMFMMark(r)
		if err != nil {
			break
		}
		if dataTag != mfmDataMarkTag && dataTag != mfmDeletedMarkTag {
			continue
		}

		payload, err := r.ReadBytes(sectorSize)
		if err != nil {
			break
		}
		crcBytes, err := r.ReadBytes(2)
		if err != nil {
			break
		}
		dataSum := uint16(crcBytes[0])<<8 | uint16(crcBytes[1])

		seed := crc16CCITTByte(0xcdb4, byte(dataTag))
		wantData := crc16CCITT(seed, payload)

		seen[int(sector)] = true
		out = append(out, container.SectorRecord{
			ID: container.SectorID{
				Cylinder: cylinder, Head: head,
				SectorNumber: int(sector), SizeCode: sizeCodeFromLength(len(payload)),
			},
			Payload: payload,
			Flags: container.SectorFlags{
				Deleted: dataTag == mfmDeletedMarkTag,
				CrcBad:  wantData != dataSum,
			},
		})
	}

	if len(out) == 0 {
		return nil, fault.At(fault.Format, "decoder/mfm", cylinder, head, nil)
	}
	return out, nil
}

// scanMFMMark scans for an A1A1A1 sync followed by its tag byte.
func scanMFMMark(r *Reader) (int, error) {
	history := uint32(mfmMarkerHistory)
	for {
		bit, err := r.readBit()
		if err != nil {
			return -1, err
		}
		history = (history << 1) | uint32(bit)
		if history == 0xffffffff {
			if _, err := r.readHalfBit(); err != nil {
				return -1, err
			}
			history = 0
			continue
		}
		if history == 0x00a1a1a1 || history == 0x00c2c2c2 {
			tag, err := r.ReadByte()
			if err != nil {
				return -1, err
			}
			return int(tag), nil
		}
	}
}

func sizeCodeFromLength(n int) int {
	switch n {
	case 128:
		return 0
	case 256:
		return 1
	case 512:
		return 2
	case 1024:
		return 3
	default:
		return 2
	}
}
