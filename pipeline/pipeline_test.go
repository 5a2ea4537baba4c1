package pipeline

import (
	"context"
	"testing"

	"floppy/container"
	"floppy/decoder"
	"floppy/flux"
	"floppy/geometry"
	"floppy/pll"
)

// fakeSource is a minimal flux.Source test double that returns a single
// three-transition revolution per ReadFlux call and records Seek/SelectHead
// calls.
type fakeSource struct {
	seeks      []int
	heads      []int
	writeCalls int
	revFailAt  int
	calls      int
}

func (f *fakeSource) Enumerate(ctx context.Context) ([]flux.DeviceInfo, error) { return nil, nil }
func (f *fakeSource) Open(ctx context.Context, info flux.DeviceInfo) error     { return nil }
func (f *fakeSource) Seek(ctx context.Context, cylinder int) error {
	f.seeks = append(f.seeks, cylinder)
	return nil
}
func (f *fakeSource) SelectHead(ctx context.Context, head int) error {
	f.heads = append(f.heads, head)
	return nil
}
func (f *fakeSource) Motor(ctx context.Context, on bool) error { return nil }
func (f *fakeSource) ReadFlux(ctx context.Context, revolutions int) ([]flux.Revolution, error) {
	f.calls++
	return []flux.Revolution{{TransitionsNS: []uint32{2000, 2000, 2000}, IndexPeriodNS: 200000000}}, nil
}
func (f *fakeSource) WriteFlux(ctx context.Context, rev flux.Revolution) error {
	f.writeCalls++
	return nil
}
func (f *fakeSource) Abort(ctx context.Context) error { return nil }
func (f *fakeSource) Close() error                    { return nil }

var _ flux.Source = (*fakeSource)(nil)

func TestReadDiskWalksEveryTrack(t *testing.T) {
	src := &fakeSource{}
	spec := TrackSpec{PresetName: "ibm_dd", Encoding: decoder.EncodingMFM, Algorithm: pll.AlgoSimple, SectorSize: 512}

	c, errs := ReadDisk(context.Background(), src, container.VariantHFE, 2, 2, 1, func(cyl int) TrackSpec { return spec })
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(src.seeks) != 2 {
		t.Errorf("seeks = %d, want 2", len(src.seeks))
	}
	if len(src.heads) != 4 {
		t.Errorf("head selects = %d, want 4", len(src.heads))
	}
	for cyl := 0; cyl < 2; cyl++ {
		for head := 0; head < 2; head++ {
			if c.Track(cyl, head) == nil {
				t.Errorf("missing track (%d,%d)", cyl, head)
			}
		}
	}
}

func TestWriteDiskSkipsTracksWithoutFlux(t *testing.T) {
	g := container.NewContainer(container.VariantHFE, geometry.Geometry{Cylinders: 2, Heads: 1, ZeroIndexed: true})
	g.SetTrack(0, 0, &container.TrackImage{})
	g.SetTrack(1, 0, &container.TrackImage{Flux: []flux.Revolution{{TransitionsNS: []uint32{1000}}}})

	src := &fakeSource{}
	errs := WriteDisk(context.Background(), src, g, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if src.writeCalls != 1 {
		t.Errorf("writeCalls = %d, want 1", src.writeCalls)
	}
}

func TestWriteDiskEncodesSectorOnlyTracks(t *testing.T) {
	geo := geometry.Geometry{Cylinders: 1, Heads: 1, SectorsPerTrack: 9, SectorSize: 512, ZeroIndexed: true}
	c := container.NewContainer(container.VariantHFE, geo)
	sectors := make([]container.SectorRecord, 9)
	for i := range sectors {
		sectors[i] = container.SectorRecord{
			ID:      container.SectorID{Cylinder: 0, Head: 0, SectorNumber: i + 1, SizeCode: 2},
			Payload: make([]byte, 512),
		}
	}
	c.SetTrack(0, 0, &container.TrackImage{Sectors: sectors})

	spec := TrackSpec{PresetName: "ibm_dd", Encoding: decoder.EncodingMFM, SectorSize: 512}
	src := &fakeSource{}
	errs := WriteDisk(context.Background(), src, c, func(cyl int) TrackSpec { return spec })
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if src.writeCalls != 1 {
		t.Errorf("writeCalls = %d, want 1", src.writeCalls)
	}
}

