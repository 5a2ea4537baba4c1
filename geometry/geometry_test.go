package geometry

import "testing"

func TestLBAInversePC(t *testing.T) {
	g := IBMPC_1440K
	for cyl := 0; cyl < g.Cylinders; cyl += 17 {
		for head := 0; head < g.Heads; head++ {
			for sector := 0; sector < g.SectorsPerTrack; sector += 5 {
				lba, err := g.LBA(cyl, head, sector)
				if err != nil {
					t.Fatalf("LBA(%d,%d,%d): %v", cyl, head, sector, err)
				}
				gotC, gotH, gotS, err := g.Inverse(lba)
				if err != nil {
					t.Fatalf("Inverse(%d): %v", lba, err)
				}
				if gotC != cyl || gotH != head || gotS != sector {
					t.Fatalf("Inverse(LBA(%d,%d,%d))=(%d,%d,%d)", cyl, head, sector, gotC, gotH, gotS)
				}
			}
		}
	}
}

func TestLBAInverseCommodoreZoned(t *testing.T) {
	g := Commodore1541
	for cyl := 1; cyl <= g.Cylinders; cyl++ {
		n, err := g.SectorsInTrack(cyl)
		if err != nil {
			t.Fatalf("SectorsInTrack(%d): %v", cyl, err)
		}
		for sector := 0; sector < n; sector++ {
			lba, err := g.LBA(cyl, 0, sector)
			if err != nil {
				t.Fatalf("LBA(%d,0,%d): %v", cyl, sector, err)
			}
			gotC, gotH, gotS, err := g.Inverse(lba)
			if err != nil {
				t.Fatalf("Inverse(%d): %v", lba, err)
			}
			if gotC != cyl || gotH != 0 || gotS != sector {
				t.Fatalf("Inverse(LBA(%d,0,%d))=(%d,%d,%d)", cyl, sector, gotC, gotH, gotS)
			}
		}
	}
}

func TestTrackZeroRejectedOnCommodore(t *testing.T) {
	if err := Commodore1541.Validate(0, 0, 0); err == nil {
		t.Fatalf("expected track 0 to be rejected on a 1-indexed variant")
	}
}

func TestZoneSectorCounts(t *testing.T) {
	cases := []struct {
		cyl  int
		want int
	}{
		{1, 21}, {17, 21}, {18, 19}, {24, 19}, {25, 18}, {30, 18}, {31, 17}, {42, 17},
	}
	for _, c := range cases {
		got, err := Commodore1541.SectorsInTrack(c.cyl)
		if err != nil {
			t.Fatalf("SectorsInTrack(%d): %v", c.cyl, err)
		}
		if got != c.want {
			t.Fatalf("SectorsInTrack(%d)=%d, want %d", c.cyl, got, c.want)
		}
	}
}
