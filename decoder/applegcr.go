package decoder

import (
	"floppy/container"
	"floppy/fault"
)

// appleGCR62DecodeTable maps a 6-and-2 disk byte (0x96..0xff self-clocking
// range) to its 6-bit value; 0xff marks an invalid byte. Built from the
// standard Apple DOS 3.3/ProDOS translate table.
var appleGCR62DecodeTable = buildAppleGCR62DecodeTable()

var appleGCR62EncodeTable = [64]byte{
	0x96, 0x97, 0x9a, 0x9b, 0x9d, 0x9e, 0x9f, 0xa6,
	0xa7, 0xab, 0xac, 0xad, 0xae, 0xaf, 0xb2, 0xb3,
	0xb4, 0xb5, 0xb6, 0xb7, 0xb9, 0xba, 0xbb, 0xbc,
	0xbd, 0xbe, 0xbf, 0xcb, 0xcd, 0xce, 0xcf, 0xd3,
	0xd6, 0xd7, 0xd9, 0xda, 0xdb, 0xdc, 0xdd, 0xde,
	0xdf, 0xe5, 0xe6, 0xe7, 0xe9, 0xea, 0xeb, 0xec,
	0xed, 0xee, 0xef, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6,
	0xf7, 0xf9, 0xfa, 0xfb, 0xfc, 0xfd, 0xfe, 0xff,
}

func buildAppleGCR62DecodeTable() [256]byte {
	var table [256]byte
	for i := range table {
		table[i] = 0xff
	}
	for six, raw := range appleGCR62EncodeTable {
		table[raw] = byte(six)
	}
	return table
}

const appleAddressProlog = 0xd5aa96
const appleDataProlog = 0xd5aaad

// DecodeAppleGCRTrack scans one already-clocked Apple II 6-and-2 GCR
// revolution. Structurally parallel to DecodeCommodoreGCRTrack: a
// byte-wide prolog instead of a sync-bit run, disk bytes decoded through
// appleGCR62DecodeTable instead of Commodore's 5-bit groups, and the
// 342-byte 6-and-2 buffer reassembled into a 256-byte sector.
func DecodeAppleGCRTrack(bits []bool, cylinder, head int) ([]container.SectorRecord, error) {
	r := &Reader{bits: bits, encoding: EncodingAppleGCR}
	var out []container.SectorRecord
	seen := make(map[int]bool)

	for !r.Done() {
		if !scanAppleProlog(r, appleAddressProlog) {
			break
		}
		volume, track, sector, checksum, err := readAppleAddressField(r)
		if err != nil {
			break
		}
		if volume^track^sector != checksum {
			continue
		}
		if int(track) != cylinder || seen[int(sector)] {
			continue
		}

		if !scanAppleProlog(r, appleDataProlog) {
			break
		}
		payload, ok, err := readAppleDataField(r)
		if err != nil {
			break
		}

		seen[int(sector)] = true
		out = append(out, container.SectorRecord{
			ID: container.SectorID{
				Cylinder: cylinder, Head: head,
				SectorNumber: int(sector), SizeCode: sizeCodeFromLength(len(payload)),
			},
			Payload: payload,
			Flags:   container.SectorFlags{CrcBad: !ok},
		})
	}

	if len(out) == 0 {
		return nil, fault.At(fault.Format, "decoder/applegcr", cylinder, head, nil)
	}
	return out, nil
}

func scanAppleProlog(r *Reader, want uint32) bool {
	history := uint32(0)
	for {
		b, err := r.readHalfBit()
		if err != nil {
			return false
		}
		history = ((history << 1) | uint32(b)) & 0xffffff
		if history == want {
			return true
		}
	}
}

// readAppleDiskByte reads one self-clocking 8-bit disk byte (raw channel
// bits, no clock-cell interleave in Apple GCR).
func readAppleDiskByte(r *Reader) (byte, error) {
	var b byte
	for i := 0; i < 8; i++ {
		bit, err := r.readHalfBit()
		if err != nil {
			return 0, err
		}
		b = (b << 1) | byte(bit)
	}
	return b, nil
}

func readAppleAddressField(r *Reader) (volume, track, sector, checksum byte, err error) {
	read := func() (byte, error) {
		odd, e := readAppleDiskByte(r)
		if e != nil {
			return 0, e
		}
		even, e := readAppleDiskByte(r)
		if e != nil {
			return 0, e
		}
		return ((odd << 1) | 1) & even, nil
	}
	// 4-and-4 decode: value = ((odd << 1) | 1) & even
	volume, err = read()
	if err != nil {
		return
	}
	track, err = read()
	if err != nil {
		return
	}
	sector, err = read()
	if err != nil {
		return
	}
	checksum, err = read()
	return
}

// readAppleDataField reads the 342-byte 6-and-2 nibblized data field and
// unpacks it back into a 256-byte sector, validating the trailing XOR
// checksum byte.
func readAppleDataField(r *Reader) ([]byte, bool, error) {
	const nibbleCount = 342
	raw := make([]byte, nibbleCount)
	for i := range raw {
		diskByte, err := readAppleDiskByte(r)
		if err != nil {
			return nil, false, err
		}
		sixBit := appleGCR62DecodeTable[diskByte]
		if sixBit == 0xff {
			return nil, false, fault.New(fault.Format, "decoder/applegcr", nil)
		}
		raw[i] = sixBit
	}
	checksumByte, err := readAppleDiskByte(r)
	if err != nil {
		return nil, false, err
	}
	checksum := appleGCR62DecodeTable[checksumByte]

	// Unpack: the first 86 nibbles each carry 2 low bits for three of the
	// 256 high-nibble bytes that follow; the standard Apple 6-and-2
	// de-nibblization XOR-chains every decoded byte in reverse order.
	lowBits := raw[:86]
	highBits := raw[86:]
	payload := make([]byte, 256)
	var chain byte
	for i := 255; i >= 0; i-- {
		hi := highBits[i] << 2
		var lo byte
		switch i % 3 {
		case 0:
			lo = (lowBits[i%86] >> 4) & 0x03
		case 1:
			lo = (lowBits[i%86] >> 2) & 0x03
		case 2:
			lo = lowBits[i%86] & 0x03
		}
		chain ^= hi | lo
		payload[i] = chain
	}
	return payload, chain == checksum, nil
}
