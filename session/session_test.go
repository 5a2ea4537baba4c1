package session

import (
	"path/filepath"
	"testing"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	r := New("sess-1", OperationRead, "2026-07-30T00:00:00Z")
	r.Format = "HFE"
	r.Hardware = HardwareInfo{Transport: "greaseweazle", Port: "/dev/ttyACM0"}
	r.Statistics = Statistics{TracksTotal: 80, TracksOK: 80}
	r.State = StateSucceeded

	data, err := r.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.ID != r.ID || got.Format != r.Format || got.Statistics.TracksOK != 80 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestUnmarshalIgnoresUnknownKeys(t *testing.T) {
	raw := []byte(`{"id":"x","version":1,"operation":"read","state":"succeeded","format":"D64","statistics":{},"output":{},"hardware":{"transport":"file"},"totally_unknown_field":123}`)
	r, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.ID != "x" {
		t.Fatalf("ID = %q", r.ID)
	}
}

func TestSaveLoadGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json.gz")

	r := New("sess-2", OperationWrite, "2026-07-30T00:00:00Z")
	r.Format = "G64"
	if err := r.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != "sess-2" || loaded.Format != "G64" {
		t.Fatalf("loaded mismatch: %+v", loaded)
	}
}

func TestSavePlainJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	r := New("sess-3", OperationVerify, "2026-07-30T00:00:00Z")
	if err := r.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != "sess-3" {
		t.Fatalf("loaded.ID = %q", loaded.ID)
	}
}
