package blankmedia

import (
	"testing"

	"floppy/container"
)

func TestD64HasFullyFreeBAM(t *testing.T) {
	c, err := D64()
	if err != nil {
		t.Fatalf("D64: %v", err)
	}
	img := c.Track(18, 0)
	if img == nil {
		t.Fatal("missing track 18")
	}
	bam := img.Sector(0)
	if bam == nil {
		t.Fatal("missing BAM sector")
	}
	if bam.Payload[4] != 21 {
		t.Errorf("track 1 free count = %d, want 21", bam.Payload[4])
	}
	if c.Dirty() {
		t.Error("expected MarkClean to leave container clean")
	}

	encoded, err := container.WriteD64(c)
	if err != nil {
		t.Fatalf("WriteD64: %v", err)
	}
	if len(encoded) != 683*256 {
		t.Errorf("encoded size = %d, want %d", len(encoded), 683*256)
	}
}

func TestJV3RoundTrips(t *testing.T) {
	c, err := JV3()
	if err != nil {
		t.Fatalf("JV3: %v", err)
	}
	encoded, err := container.WriteJV3(c)
	if err != nil {
		t.Fatalf("WriteJV3: %v", err)
	}
	parsed, err := container.ParseJV3(encoded)
	if err != nil {
		t.Fatalf("ParseJV3: %v", err)
	}
	if parsed.Variant != container.VariantJV3 {
		t.Errorf("variant = %v", parsed.Variant)
	}
}

func TestHFE1440KDimensions(t *testing.T) {
	c, err := HFE1440K()
	if err != nil {
		t.Fatalf("HFE1440K: %v", err)
	}
	if c.Geometry.Cylinders != 80 || c.Geometry.Heads != 2 {
		t.Errorf("geometry = %+v", c.Geometry)
	}
	img := c.Track(0, 0)
	if img == nil || len(img.Bits) != 12500 {
		t.Errorf("track 0 side 0 length = %d, want 12500", len(img.Bits))
	}
}

func TestG64GapFill(t *testing.T) {
	c, err := G64()
	if err != nil {
		t.Fatalf("G64: %v", err)
	}
	img := c.Track(1, 0)
	if img == nil || len(img.Bits) == 0 {
		t.Fatal("missing track 1 bits")
	}
	if img.Bits[0] != 0x55 {
		t.Errorf("gap byte = %#x, want 0x55", img.Bits[0])
	}
}

func TestHFERejectsBadDimensions(t *testing.T) {
	if _, err := HFE(0, 2, 12500); err == nil {
		t.Fatal("expected error for zero cylinders")
	}
	if _, err := HFE(80, 3, 12500); err == nil {
		t.Fatal("expected error for heads > 2")
	}
}
