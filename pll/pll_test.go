package pll

import "testing"

// syntheticTransitions builds an absolute-time transition sequence for a
// fixed pattern of bit intervals (in bit cells), at the given nominal cell
// period, with no jitter - enough to exercise lock/decode without needing a
// real flux capture.
func syntheticTransitions(cellsBetween []int, cellNS float64) []uint64 {
	var out []uint64
	var acc uint64
	for _, cells := range cellsBetween {
		acc += uint64(float64(cells) * cellNS)
		out = append(out, acc)
	}
	return out
}

func TestSimpleLocksOnRegularPattern(t *testing.T) {
	preset := Presets["ibm_dd"]
	// Transition every 2 cells, 40 times: a clean, regular MFM-like pattern.
	cells := make([]int, 40)
	for i := range cells {
		cells[i] = 2
	}
	transitions := syntheticTransitions(cells, preset.BitCellNS)

	s := NewState(AlgoSimple, preset, transitions)
	var bits []bool
	for !s.IsDone() {
		bits = append(bits, s.NextBit())
	}

	if len(bits) == 0 {
		t.Fatal("decoded no bits")
	}
	stats := s.Snapshot()
	if !stats.Locked {
		t.Fatalf("expected loop to be locked on a regular pattern, stats=%+v", stats)
	}
}

func TestAllAlgorithmsDecodeWithoutPanicking(t *testing.T) {
	preset := Presets["custom"]
	cells := []int{2, 2, 3, 2, 2, 4, 2, 3, 2, 2, 2, 3, 2, 2, 4, 2}
	transitions := syntheticTransitions(cells, preset.BitCellNS)

	for _, algo := range []Algorithm{AlgoSimple, AlgoPI, AlgoAdaptive, AlgoKalman, AlgoDigital} {
		s := NewState(algo, preset, transitions)
		count := 0
		for !s.IsDone() {
			s.NextBit()
			count++
			if count > 10_000 {
				t.Fatalf("%s: NextBit never terminated", algo)
			}
		}
	}
}

func TestResyncClearsPhaseError(t *testing.T) {
	preset := Presets["ibm_dd"]
	transitions := syntheticTransitions([]int{2, 2, 2}, preset.BitCellNS)
	s := NewState(AlgoSimple, preset, transitions)
	s.NextBit()
	s.Resync()
	if s.flux != 0 || s.period != s.periodIdeal {
		t.Fatalf("Resync did not reset state: flux=%v period=%v", s.flux, s.period)
	}
}

func TestPresetForUnknown(t *testing.T) {
	if _, ok := PresetFor("does-not-exist"); ok {
		t.Fatal("expected PresetFor to report ok=false for an unknown preset")
	}
}

func TestConfidenceLockedBeatsUnlocked(t *testing.T) {
	preset := Presets["ibm_dd"]
	locked := Stats{Locked: true}
	unlocked := Stats{Locked: false}
	if locked.Confidence(preset) <= unlocked.Confidence(preset) {
		t.Fatalf("locked confidence %v should exceed unlocked %v", locked.Confidence(preset), unlocked.Confidence(preset))
	}
}

func TestConfidenceClampedToUnitRange(t *testing.T) {
	preset := Presets["ibm_dd"]
	noisy := Stats{Locked: false, ResyncCount: 50, MaxPhaseErrNS: preset.BitCellNS * 10}
	if got := noisy.Confidence(preset); got < 0 || got > 1 {
		t.Fatalf("Confidence = %v, want a value in [0,1]", got)
	}
}
