package decoder

import (
	"floppy/container"
	"floppy/fault"
)

// FM address/data marks use a clock-bit violation pattern distinct from
// MFM's A1: 0xFE preceded by a missing clock on bit 4 for IDAM, 0xFB/0xF8
// similarly for the data marks. We detect them the same way as MFM (a
// rolling history match) since the PLL has already stripped the clock
// cells into the channel bit stream; only the marker constant differs.
const (
	fmIndexMarkHistory   = 0x0f77a
	fmAddressMarkHistory = 0x0f57e
	fmDataMarkHistory    = 0x0f56f
	fmDeletedMarkHistory = 0x0f56a
)

// DecodeFMTrack scans one already-clocked FM revolution (TI-99, TRS-DOS
// single density) for sectors. Structurally identical to DecodeMFMTrack,
// but FM has no interleaved clock cell to discard (readBit returns every
// channel bit directly, see Reader.readBit), and the sync marks are the
// single-density IDAM/DAM constants above rather than A1/C2.
func DecodeFMTrack(bits []bool, cylinder, head, sectorSize int) ([]container.SectorRecord, error) {
	r := NewReader(bits, EncodingFM)
	var out []container.SectorRecord
	seen := make(map[int]bool)

	for !r.Done() {
		if err := scanFMAddressMark(r); err != nil {
			break
		}

		header, err := r.ReadBytes(6)
		if err != nil {
			break
		}
		readCyl, readHead, sector, size := header[0], header[1], header[2], header[3]
		headerSum := uint16(header[4])<<8 | uint16(header[5])

		want := crc16CCITTByte(0xef21, readCyl)
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

		deleted, err := scanFMDataMark(r)
		if err != nil {
			break
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
		wantData := crc16CCITT(0xffff, payload)

		seen[int(sector)] = true
		out = append(out, container.SectorRecord{
			ID: container.SectorID{
				Cylinder: cylinder, Head: head,
				SectorNumber: int(sector), SizeCode: sizeCodeFromLength(len(payload)),
			},
			Payload: payload,
			Flags: container.SectorFlags{
				Deleted: deleted,
				CrcBad:  wantData != dataSum,
			},
		})
	}

	if len(out) == 0 {
		return nil, fault.At(fault.Format, "decoder/fm", cylinder, head, nil)
	}
	return out, nil
}

func scanFMAddressMark(r *Reader) error {
	history := uint32(0)
	for {
		bit, err := r.readBit()
		if err != nil {
			return err
		}
		history = ((history << 1) | uint32(bit)) & 0xfffff
		if history == fmAddressMarkHistory {
			return nil
		}
	}
}

func scanFMDataMark(r *Reader) (deleted bool, err error) {
	history := uint32(0)
	for {
		bit, e := r.readBit()
		if e != nil {
			return false, e
		}
		history = ((history << 1) | uint32(bit)) & 0xfffff
		if history == fmDataMarkHistory {
			return false, nil
		}
		if history == fmDeletedMarkHistory {
			return true, nil
		}
	}
}
