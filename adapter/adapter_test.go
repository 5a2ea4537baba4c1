package adapter

import "testing"

func TestNamesListsEveryRegisteredTransport(t *testing.T) {
	names := Names()
	want := map[string]bool{"greaseweazle": true, "supercardpro": true, "kryoflux": true}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %d entries", names, len(want))
	}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected transport name %q", n)
		}
	}
}

func TestRegistryEntriesHaveDistinctVendorProductPairs(t *testing.T) {
	seen := make(map[[2]uint16]string)
	for _, r := range registry {
		key := [2]uint16{r.VendorID, r.ProductID}
		if prior, ok := seen[key]; ok {
			t.Errorf("%s and %s share VID/PID %v", prior, r.Name, key)
		}
		seen[key] = r.Name
	}
}
