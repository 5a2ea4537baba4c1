package container

import (
	"testing"

	"floppy/geometry"
)

func TestVariantFromName(t *testing.T) {
	cases := map[string]Variant{"d64": VariantD64, "hfe": VariantHFE, "scp": VariantSCP, "jv3": VariantJV3}
	for name, want := range cases {
		got, ok := VariantFromName(name)
		if !ok || got != want {
			t.Errorf("VariantFromName(%q) = %v,%v want %v,true", name, got, ok, want)
		}
	}
	if _, ok := VariantFromName("nope"); ok {
		t.Error("expected ok=false for unknown name")
	}
}

func TestWriteDispatchesOnVariant(t *testing.T) {
	g := geometry.Geometry{Cylinders: 1, Heads: 1, SectorsPerTrack: 1, SectorSize: 0, ZeroIndexed: true}
	c := NewContainer(VariantJV3, g)
	if _, err := Write(c); err != nil {
		t.Fatalf("Write: %v", err)
	}

	c.Variant = VariantUnknown
	if _, err := Write(c); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}
