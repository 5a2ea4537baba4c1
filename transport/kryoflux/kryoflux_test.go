package kryoflux

import "testing"

func TestTicksToNS(t *testing.T) {
	// One sck tick is 1e9/sckFreqHz nanoseconds; a round-number check
	// against the known ~83.3ns-per-tick KryoFlux sample period.
	ns := ticksToNS(1)
	if ns < 83 || ns > 84 {
		t.Errorf("ticksToNS(1) = %d, want ~83ns", ns)
	}
}

func TestItoa(t *testing.T) {
	cases := map[int]string{0: "0", 7: "7", 42: "42", -5: "-5", 100: "100"}
	for n, want := range cases {
		if got := itoa(n); got != want {
			t.Errorf("itoa(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestLastOrZero(t *testing.T) {
	if v := lastOrZero(nil, ticksToNS); v != 0 {
		t.Errorf("lastOrZero(nil) = %d, want 0", v)
	}
	if v := lastOrZero([]uint32{10, 20}, func(x uint32) uint32 { return x }); v != 20 {
		t.Errorf("lastOrZero = %d, want 20", v)
	}
}
