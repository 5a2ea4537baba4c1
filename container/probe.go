package container

import "sort"

// ProbeResult is one candidate variant identification with a 0-100
// confidence score, per §4.C variant detection.
type ProbeResult struct {
	Variant    Variant
	Confidence int
}

// d64SizesBytes enumerates the exact byte counts of every standard D64
// layout (35/40/42-track, with and without the trailing per-sector errata
// bytes).
var d64SizesBytes = map[int]bool{
	174848: true, 175531: true,
	196608: true, 197376: true,
	205312: true, 206114: true,
}

// Probe inspects raw bytes and returns every variant whose structural
// signature matches, ranked highest confidence first. A file that matches
// no known signature returns an empty slice (confidence 0 overall).
func Probe(data []byte) []ProbeResult {
	var results []ProbeResult

	if len(data) >= 3 && string(data[:3]) == scpSignature {
		results = append(results, ProbeResult{VariantSCP, 95})
	}
	if len(data) >= 8 {
		sig := string(data[:8])
		if sig == hfeV1Signature || sig == hfeV3Signature {
			results = append(results, ProbeResult{VariantHFE, 95})
		}
	}
	if len(data) >= 8 && string(data[:8]) == g64Signature {
		// The source's probe for this signature also inspects byte 9 and
		// treats values > 84 as corroborating evidence, but the meaning of
		// that byte is undocumented upstream; it is not used here to avoid
		// committing a geometry off an unverified heuristic (§9 open
		// question).
		results = append(results, ProbeResult{VariantG64, 90})
	}
	if d64SizesBytes[len(data)] {
		results = append(results, ProbeResult{VariantD64, 90})
	}
	if len(data) >= 3 && data[0] == 'C' && data[1] == '6' && data[2] == '4' {
		results = append(results, ProbeResult{VariantT64, 85})
	}
	if len(data) >= 4 {
		magic := string(data[:4])
		if magic == "PSID" || magic == "RSID" {
			results = append(results, ProbeResult{VariantSID, 95})
		}
	}
	if len(data) >= len(vsfMagic) && string(data[:len(vsfMagic)]) == vsfMagic {
		results = append(results, ProbeResult{VariantVSF, 95})
	}
	if len(data) >= cvtWrapperLen+cvtInfoLen && data[0] <= 1 {
		// CVT has no magic; a plausible structure type byte (0=sequential,
		// 1=VLIR) plus a file large enough to hold wrapper+info is the best
		// available structural signal, so confidence is capped well below
		// the magic-bearing formats.
		results = append(results, ProbeResult{VariantCVT, 40})
	}
	if isJV3Shaped(data) {
		results = append(results, ProbeResult{VariantJV3, 60})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}

// isJV3Shaped applies the JV3 structural heuristic: no magic exists, so a
// file at least as large as the fixed header table, whose first entry's
// track byte is a plausible track number (not the 0xff free marker) and
// whose first entry's declared sector size fits after the header table,
// is treated as a JV3 candidate. Later entries are not inspected.
func isJV3Shaped(data []byte) bool {
	if len(data) < jv3HeaderSize+128 {
		return false
	}
	if data[0] == jv3FreeTrack {
		return false
	}
	track := data[0]
	if track > 90 {
		return false
	}
	flags := data[2]
	size := jv3SizeFromFlags(flags)
	return len(data) >= jv3HeaderSize+size
}
