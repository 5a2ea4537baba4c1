package pll

// Presets covers the named encodings the decoder package dispatches to.
// BitCellNS values are the standard clock-cell times for each format;
// MaxAdjPercent/PeriodAdjPct/PhaseAdjPct default to the original SCP
// tolerances (CLOCK_MAX_ADJ=10, PERIOD_ADJ_PCT=5, PHASE_ADJ_PCT=60) except
// where a format's looser/tighter tolerance is well known (GCR media run a
// wider adjustment window; high-density MFM a narrower one).
var Presets = map[string]Preset{
	"amiga_dd": {
		Name: "amiga_dd", BitCellNS: 2000, MaxAdjPercent: 10,
		PeriodAdjPct: 5, PhaseAdjPct: 60, IntegralGain: 0.05,
	},
	"amiga_hd": {
		Name: "amiga_hd", BitCellNS: 1000, MaxAdjPercent: 8,
		PeriodAdjPct: 5, PhaseAdjPct: 60, IntegralGain: 0.05,
	},
	"atari_st": {
		Name: "atari_st", BitCellNS: 2000, MaxAdjPercent: 10,
		PeriodAdjPct: 5, PhaseAdjPct: 60, IntegralGain: 0.05,
	},
	"ibm_dd": {
		Name: "ibm_dd", BitCellNS: 2000, MaxAdjPercent: 10,
		PeriodAdjPct: 5, PhaseAdjPct: 60, IntegralGain: 0.05,
	},
	"ibm_hd": {
		Name: "ibm_hd", BitCellNS: 1000, MaxAdjPercent: 8,
		PeriodAdjPct: 5, PhaseAdjPct: 60, IntegralGain: 0.05,
	},
	"ibm_ed": {
		Name: "ibm_ed", BitCellNS: 500, MaxAdjPercent: 6,
		PeriodAdjPct: 4, PhaseAdjPct: 60, IntegralGain: 0.04,
	},
	"c64_1541": {
		Name: "c64_1541", BitCellNS: 3625, MaxAdjPercent: 12,
		PeriodAdjPct: 6, PhaseAdjPct: 55, IntegralGain: 0.06,
	},
	"c64_1571": {
		Name: "c64_1571", BitCellNS: 3625, MaxAdjPercent: 12,
		PeriodAdjPct: 6, PhaseAdjPct: 55, IntegralGain: 0.06,
	},
	"c128_1581": {
		// The 1581 is a 3.5" MFM double-density drive, unlike the GCR 1541/1571.
		Name: "c128_1581", BitCellNS: 2000, MaxAdjPercent: 10,
		PeriodAdjPct: 5, PhaseAdjPct: 60, IntegralGain: 0.05,
	},
	"apple2_gcr": {
		Name: "apple2_gcr", BitCellNS: 4000, MaxAdjPercent: 15,
		PeriodAdjPct: 8, PhaseAdjPct: 50, IntegralGain: 0.08,
	},
	"apple35_gcr": {
		Name: "apple35_gcr", BitCellNS: 2000, MaxAdjPercent: 15,
		PeriodAdjPct: 8, PhaseAdjPct: 50, IntegralGain: 0.08,
	},
	"apple35_mfm": {
		// The Superdrive's 1.44M mode is ordinary PC-compatible HD MFM.
		Name: "apple35_mfm", BitCellNS: 1000, MaxAdjPercent: 8,
		PeriodAdjPct: 5, PhaseAdjPct: 60, IntegralGain: 0.05,
	},
	"fm_sd": {
		Name: "fm_sd", BitCellNS: 4000, MaxAdjPercent: 10,
		PeriodAdjPct: 5, PhaseAdjPct: 60, IntegralGain: 0.05,
	},
	"fm_dd": {
		Name: "fm_dd", BitCellNS: 2000, MaxAdjPercent: 10,
		PeriodAdjPct: 5, PhaseAdjPct: 60, IntegralGain: 0.05,
	},
	"protection": {
		// Wide clamp/gentle phase snap: copy-protection tracks deliberately
		// carry out-of-spec cell timing the loop must not "correct" away.
		Name: "protection", BitCellNS: 2000, MaxAdjPercent: 25,
		PeriodAdjPct: 10, PhaseAdjPct: 40, IntegralGain: 0.10,
	},
	"damaged": {
		// Low gain, wide clamp: favors staying locked through dropouts over
		// chasing noise on marginal/damaged media.
		Name: "damaged", BitCellNS: 2000, MaxAdjPercent: 20,
		PeriodAdjPct: 3, PhaseAdjPct: 30, IntegralGain: 0.03,
	},
	"custom": {
		// Starting point for a caller-supplied preset; PresetFor returns
		// this verbatim and callers are expected to override fields that
		// don't fit their media before passing it to NewState.
		Name: "custom", BitCellNS: 2000, MaxAdjPercent: 10,
		PeriodAdjPct: 5, PhaseAdjPct: 60, IntegralGain: 0.05,
	},
}

// PresetFor looks up a preset by name, returning ok=false if unknown.
func PresetFor(name string) (Preset, bool) {
	p, ok := Presets[name]
	return p, ok
}
