package commodore

import (
	"testing"

	"floppy/container"
	"floppy/fsys"
	"floppy/geometry"
)

func newTestD64() *container.Container {
	g := geometry.Geometry{
		Cylinders: 35, Heads: 1, SectorSize: 256, ZeroIndexed: false,
		Zones: &geometry.ZoneMap{Zones: []geometry.Zone{
			{MaxCylinder: 17, SectorsPerTrack: 21},
			{MaxCylinder: 24, SectorsPerTrack: 19},
			{MaxCylinder: 30, SectorsPerTrack: 18},
			{MaxCylinder: 35, SectorsPerTrack: 17},
		}},
	}
	c := container.NewContainer(container.VariantD64, g)

	bamPayload := make([]byte, 256)
	bamPayload[0] = 18
	bamPayload[1] = 1
	c.SetTrack(18, 0, &container.TrackImage{Sectors: []container.SectorRecord{
		{ID: container.SectorID{Cylinder: 18, SectorNumber: 0}, Payload: bamPayload},
	}})
	return c
}

func addDirSector(c *container.Container, sector int, nextTrack, nextSector byte, entries [][]byte) {
	payload := make([]byte, 256)
	payload[0] = nextTrack
	payload[1] = nextSector
	for i, e := range entries {
		copy(payload[i*dirEntrySize:], e)
	}
	img := c.Track(dirTrack, 0)
	img.Sectors = append(img.Sectors, container.SectorRecord{
		ID:      container.SectorID{Cylinder: dirTrack, SectorNumber: sector},
		Payload: payload,
	})
}

func makeEntry(name string, track, sector byte, fileType byte, sizeBlocks uint16) []byte {
	e := make([]byte, dirEntrySize)
	e[2] = fileType
	e[3] = track
	e[4] = sector
	copy(e[5:21], fsys.ASCIIToPETSCII(name, 16))
	e[28] = byte(sizeBlocks)
	e[29] = byte(sizeBlocks >> 8)
	return e
}

func TestListDirectoryOneEntry(t *testing.T) {
	c := newTestD64()
	addDirSector(c, 1, 0, 0xff, [][]byte{
		makeEntry("HELLO", 1, 0, 0x82, 4),
	})

	entries, chainErr, err := ListDirectory(c)
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	if chainErr != fsys.ChainOK {
		t.Fatalf("chainErr = %v", chainErr)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Name != "HELLO" {
		t.Fatalf("name = %q", entries[0].Name)
	}
	if entries[0].Type != fsys.FileTypeProgram {
		t.Fatalf("type = %v", entries[0].Type)
	}
	if !entries[0].Flags.Closed {
		t.Fatalf("expected closed flag set")
	}
}

func TestListDirectoryDetectsCycle(t *testing.T) {
	c := newTestD64()
	addDirSector(c, 1, 18, 1, nil) // points to itself

	_, chainErr, err := ListDirectory(c)
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	if chainErr != fsys.ChainErrorBroken {
		t.Fatalf("chainErr = %v, want ChainErrorBroken", chainErr)
	}
}

func TestBAMAllocateFree(t *testing.T) {
	bam := &BAM{}
	for track := 1; track <= 40; track++ {
		bam.FreeCount[track] = 21
		bam.Bitmap[track] = [3]byte{0xff, 0xff, 0xff}
	}
	if !bam.IsFree(1, 0) {
		t.Fatalf("expected sector free")
	}
	bam.Allocate(1, 0)
	if bam.IsFree(1, 0) {
		t.Fatalf("expected sector allocated")
	}
	if bam.FreeCount[1] != 20 {
		t.Fatalf("FreeCount = %d, want 20", bam.FreeCount[1])
	}
	bam.Free(1, 0)
	if !bam.IsFree(1, 0) || bam.FreeCount[1] != 21 {
		t.Fatalf("free did not restore state")
	}
}

func TestReadFileTruncatesLastSector(t *testing.T) {
	c := newTestD64()
	first := make([]byte, 256)
	first[0] = 1
	first[1] = 1 // next: track 1, sector 1
	copy(first[2:], []byte("0123456789"))
	last := make([]byte, 256)
	last[0] = 0
	last[1] = 5 // terminal: 5 valid bytes
	copy(last[2:], []byte("abcdefghij"))

	img := &container.TrackImage{Sectors: []container.SectorRecord{
		{ID: container.SectorID{Cylinder: 1, SectorNumber: 0}, Payload: first},
		{ID: container.SectorID{Cylinder: 1, SectorNumber: 1}, Payload: last},
	}}
	c.SetTrack(1, 0, img)

	data, chainErr, err := ReadFile(c, fsys.Locator{Track: 1, Sector: 0})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if chainErr != fsys.ChainOK {
		t.Fatalf("chainErr = %v", chainErr)
	}
	// The non-final sector contributes all 254 bytes after its link.
	want := "0123456789" + string(make([]byte, 244)) + "abcde"
	if string(data) != want {
		t.Fatalf("data = %q, want %q", data, want)
	}
}
