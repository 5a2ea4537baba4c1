package decoder

import "floppy/container"

// DecodeTrack dispatches to the encoding-specific scanner. bits is the
// clocked output of one pll.State run over a single flux.Revolution.
func DecodeTrack(encoding Encoding, bits []bool, cylinder, head, sectorSize int) ([]container.SectorRecord, error) {
	switch encoding {
	case EncodingMFM:
		return DecodeMFMTrack(bits, cylinder, head, sectorSize)
	case EncodingFM:
		return DecodeFMTrack(bits, cylinder, head, sectorSize)
	case EncodingCommodoreGCR:
		return DecodeCommodoreGCRTrack(bits, cylinder, head)
	case EncodingAppleGCR:
		return DecodeAppleGCRTrack(bits, cylinder, head)
	default:
		return DecodeMFMTrack(bits, cylinder, head, sectorSize)
	}
}

// reconcileEntry is one revolution's decode of a sector, paired with that
// revolution's PLL confidence (0 if the caller didn't supply one).
type reconcileEntry struct {
	record     container.SectorRecord
	confidence float64
}

// Reconcile merges sector records decoded from multiple revolutions of the
// same track into one set, by the §4.F rule: for each sector number, (1)
// prefer a CRC-good record over a CRC-bad one; (2) among CRC-good records,
// prefer the one from the revolution whose preceding PLL confidence was
// highest; (3) among CRC-bad records (no CRC-good candidate survived at
// all), synthesize a best-effort payload by majority-voting each byte
// position across every CRC-bad revolution's copy of that sector. A sector
// missing from every revolution is simply absent from the result; the
// caller (the flux pipeline) is responsible for flagging that as
// ErrorMissing in the container's errata.
//
// confidences is indexed the same way perRevolution is: confidences[i] is
// the PLL confidence for perRevolution[i]'s capture. A nil or short
// confidences treats the missing entries as 0, so tie-break rule 2 simply
// never promotes them over a revolution with an actual score.
func Reconcile(perRevolution [][]container.SectorRecord, confidences []float64) []container.SectorRecord {
	bySector := make(map[int][]reconcileEntry)
	var order []int

	for rev, sectors := range perRevolution {
		conf := 0.0
		if rev < len(confidences) {
			conf = confidences[rev]
		}
		for _, sec := range sectors {
			sec.SourceRevolution = rev
			key := sec.ID.SectorNumber
			if _, seen := bySector[key]; !seen {
				order = append(order, key)
			}
			bySector[key] = append(bySector[key], reconcileEntry{record: sec, confidence: conf})
		}
	}

	out := make([]container.SectorRecord, 0, len(order))
	for _, key := range order {
		out = append(out, resolveSector(bySector[key]))
	}
	return out
}

// resolveSector applies the three-rule tie-break to every revolution's
// candidate for one sector number.
func resolveSector(entries []reconcileEntry) container.SectorRecord {
	var ok []reconcileEntry
	var bad []reconcileEntry
	for _, e := range entries {
		if e.record.Flags.CrcBad {
			bad = append(bad, e)
		} else {
			ok = append(ok, e)
		}
	}

	if len(ok) > 0 {
		best := ok[0]
		for _, e := range ok[1:] {
			if e.confidence > best.confidence {
				best = e
			}
		}
		return best.record
	}
	return majorityVotePayload(bad)
}

// majorityVotePayload builds one sector record out of every CRC-bad
// candidate by picking, at each byte position, the value a plurality of the
// candidates agree on (ties broken toward the smaller byte value, so the
// result is deterministic regardless of map/slice iteration order). The
// returned record otherwise carries the first candidate's metadata.
func majorityVotePayload(entries []reconcileEntry) container.SectorRecord {
	best := entries[0].record
	if len(entries) == 1 {
		return best
	}

	size := len(best.Payload)
	for _, e := range entries[1:] {
		if len(e.record.Payload) > size {
			size = len(e.record.Payload)
		}
	}

	voted := make([]byte, size)
	for i := 0; i < size; i++ {
		var counts [256]int
		for _, e := range entries {
			if i < len(e.record.Payload) {
				counts[e.record.Payload[i]]++
			}
		}
		bestByte, bestCount := byte(0), -1
		for b, count := range counts {
			if count > bestCount {
				bestByte, bestCount = byte(b), count
			}
		}
		voted[i] = bestByte
	}

	best.Payload = voted
	return best
}
