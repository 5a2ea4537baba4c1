package flux

import "floppy/fault"

// Wire opcodes for the hardware flux stream encoding (§4.D). Grounded on the
// N28 decoding in transport/greaseweazle, generalized here to also encode
// (the original only decoded).
const (
	wireOpEnd   = 0x00
	wireOpIndex = 0xFF01 // 0xFF prefix + 0x01
	wireOpSpace = 0xFF02 // 0xFF prefix + 0x02
	wireOpAstable = 0xFF03 // 0xFF prefix + 0x03
)

// spaceThresholdTicks is the smallest delta EncodeWire writes with a space
// opcode (0xFF 0x02) instead of a single direct or extended delta.
// EncodeWire never emits the astable (0xFF 0x03) marker.
const spaceThresholdTicks = 1525

// DecodeWire decodes the Greaseweazle-style variable-length flux wire
// encoding into a tick-delta sequence plus index-pulse positions (expressed
// as an index into the deltas slice at which the index pulse fired). Delta
// 0x01..0xF9 is a direct delta; 0xFA..0xFE is a two-byte extended delta;
// 0x00 ends the stream; 0xFF is an opcode prefix.
func DecodeWire(data []byte) (deltas []uint32, indexAt []int, err error) {
	var acc uint32
	i := 0
	for i < len(data) {
		b := data[i]
		switch {
		case b == wireOpEnd:
			return deltas, indexAt, nil
		case b == 0xFF:
			if i+1 >= len(data) {
				return nil, nil, fault.New(fault.Format, "flux/wire", nil)
			}
			op := data[i+1]
			i += 2
			switch op {
			case 0x01: // index pulse + 28-bit skip N
				n, consumed, e := readN28(data, i)
				if e != nil {
					return nil, nil, e
				}
				i += consumed
				acc += n
				indexAt = append(indexAt, len(deltas))
			case 0x02: // space: add N ticks, no transition
				n, consumed, e := readN28(data, i)
				if e != nil {
					return nil, nil, e
				}
				i += consumed
				acc += n
			case 0x03: // astable-region marker: skip
				n, consumed, e := readN28(data, i)
				if e != nil {
					return nil, nil, e
				}
				i += consumed
				acc += n
			default:
				return nil, nil, fault.New(fault.Format, "flux/wire", nil)
			}
		case b >= 0x01 && b <= 0xF9:
			acc += uint32(b)
			deltas = append(deltas, acc)
			acc = 0
			i++
		default: // 0xFA..0xFE: two-byte extended delta
			if i+1 >= len(data) {
				return nil, nil, fault.New(fault.Format, "flux/wire", nil)
			}
			delta := 250 + uint32(b-250)*255 + uint32(data[i+1]) - 1
			acc += delta
			deltas = append(deltas, acc)
			acc = 0
			i += 2
		}
	}
	return deltas, indexAt, nil
}

// readN28 decodes a 28-bit value where only bits 7..1 of each of the four
// bytes carry payload (per §4.D: "N is encoded as four bytes where only
// bits 7..1 carry payload"). Grounded on readN28 in transport/greaseweazle.
func readN28(data []byte, offset int) (uint32, int, error) {
	if offset+4 > len(data) {
		return 0, 0, fault.New(fault.OutOfBounds, "flux/wire", nil)
	}
	b0, b1, b2, b3 := data[offset], data[offset+1], data[offset+2], data[offset+3]
	value := ((uint32(b0) & 0xfe) >> 1) |
		((uint32(b1) & 0xfe) << 6) |
		((uint32(b2) & 0xfe) << 13) |
		((uint32(b3) & 0xfe) << 20)
	return value, 4, nil
}

func writeN28(out []byte, n uint32) []byte {
	b0 := byte((n<<1)&0xfe) | 0
	b1 := byte((n>>6)&0xfe) | 0
	b2 := byte((n>>13)&0xfe) | 0
	b3 := byte((n>>20)&0xfe) | 0
	return append(out, b0, b1, b2, b3)
}

// EncodeWire encodes a tick-delta sequence back into the hardware flux wire
// format. indexAt lists the delta indices at which an index pulse should be
// emitted (inserted as a 0xFF 0x01 opcode before that delta). Gaps of
// spaceThresholdTicks ticks or more are emitted as an 0xFF 0x02 space
// opcode followed by a residual direct/extended delta, matching the
// encoder behaviour described in §4.D.
func EncodeWire(deltas []uint32, indexAt []int) []byte {
	indexSet := make(map[int]bool, len(indexAt))
	for _, idx := range indexAt {
		indexSet[idx] = true
	}
	var out []byte
	for i, d := range deltas {
		if indexSet[i] {
			out = append(out, 0xFF, 0x01)
			out = writeN28(out, 0)
		}
		if d >= spaceThresholdTicks {
			out = append(out, 0xFF, 0x02)
			out = writeN28(out, d-249)
			out = appendDirectOrExtended(out, 249)
			continue
		}
		out = appendDirectOrExtended(out, d)
	}
	out = append(out, wireOpEnd)
	return out
}

// WireTickNS is the tick resolution package txn's hardware pre-image
// backups are serialized at. It need not match any one transport's native
// sample rate (SuperCard Pro ticks at 25ns, Greaseweazle's is
// device-reported) since EncodeWire/DecodeWire round-trip through this
// package only, never across the wire to real hardware.
const WireTickNS = 25

// RevolutionToWireBytes serializes rev for backup/restore via package txn:
// its nanosecond transition deltas become tick deltas at WireTickNS
// resolution, with a single index-pulse marker at position 0.
func RevolutionToWireBytes(rev Revolution) []byte {
	deltas := make([]uint32, len(rev.TransitionsNS))
	for i, ns := range rev.TransitionsNS {
		deltas[i] = ns / WireTickNS
	}
	return EncodeWire(deltas, []int{0})
}

// WireBytesToRevolution is the inverse of RevolutionToWireBytes.
func WireBytesToRevolution(data []byte) (Revolution, error) {
	deltas, _, err := DecodeWire(data)
	if err != nil {
		return Revolution{}, err
	}
	out := Revolution{TransitionsNS: make([]uint32, len(deltas))}
	var total uint64
	for i, d := range deltas {
		ns := d * WireTickNS
		out.TransitionsNS[i] = ns
		total += uint64(ns)
	}
	out.IndexPeriodNS = uint32(total)
	return out, nil
}

// appendDirectOrExtended writes d (1..1524 ticks) as one transition: a
// direct byte below 250, otherwise a two-byte extended delta that
// DecodeWire reads back as 250 + (b-250)*255 + next - 1.
func appendDirectOrExtended(out []byte, d uint32) []byte {
	if d == 0 {
		d = 1
	}
	if d < 250 {
		return append(out, byte(d))
	}
	rem := d - 250
	return append(out, byte(250+rem/255), byte(rem%255+1))
}
