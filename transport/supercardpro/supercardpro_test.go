package supercardpro

import "testing"

func TestDecodeSCPTicksSimple(t *testing.T) {
	raw := []byte{0x00, 0x0a, 0x00, 0x14}
	ns, err := decodeSCPTicks(raw)
	if err != nil {
		t.Fatalf("decodeSCPTicks: %v", err)
	}
	want := []uint32{10 * sampleTickNS, 20 * sampleTickNS}
	if len(ns) != len(want) {
		t.Fatalf("got %v, want %v", ns, want)
	}
	for i := range want {
		if ns[i] != want[i] {
			t.Errorf("ns[%d] = %d, want %d", i, ns[i], want[i])
		}
	}
}

func TestDecodeSCPTicksOverflow(t *testing.T) {
	// 0x0000 overflow marker followed by a 0x0005 delta: total tick count
	// is 0x10000 + 5.
	raw := []byte{0x00, 0x00, 0x00, 0x05}
	ns, err := decodeSCPTicks(raw)
	if err != nil {
		t.Fatalf("decodeSCPTicks: %v", err)
	}
	if len(ns) != 1 {
		t.Fatalf("got %d transitions, want 1", len(ns))
	}
	want := uint32(0x10005) * sampleTickNS
	if ns[0] != want {
		t.Errorf("ns[0] = %d, want %d", ns[0], want)
	}
}

func TestDecodeSCPTicksOddLength(t *testing.T) {
	if _, err := decodeSCPTicks([]byte{0x00}); err == nil {
		t.Fatalf("expected error on odd-length buffer")
	}
}
