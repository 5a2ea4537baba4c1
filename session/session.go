// Package session defines the persisted session document: the JSON record
// of one read/write/copy/verify operation, its hardware and format
// parameters, per-track statistics, and the final output summary. Modeled
// after the teacher's plain-struct-plus-encoding/json approach (no schema
// library in the example pack reaches for anything heavier for this kind
// of document), with gzip auto-save grounded on klauspost/compress, the
// same compression library the teacher's greaseweazle image handling
// already imports.
package session

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"

	kzgzip "github.com/klauspost/compress/gzip"
)

// Operation names the kind of run a Record describes.
type Operation string

const (
	OperationRead   Operation = "read"
	OperationWrite  Operation = "write"
	OperationCopy   Operation = "copy"
	OperationVerify Operation = "verify"
)

// State is the session's terminal or in-progress status.
type State string

const (
	StateInProgress State = "in_progress"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateAborted    State = "aborted"
)

// HardwareInfo records which capture device and port served the session.
type HardwareInfo struct {
	Transport    string `json:"transport"`
	SerialNumber string `json:"serial_number,omitempty"`
	Port         string `json:"port,omitempty"`
}

// TrackStat is one track's outcome: read/write attempt counts and any
// sector errata observed.
type TrackStat struct {
	Cylinder int      `json:"cylinder"`
	Head     int      `json:"head"`
	Retries  int      `json:"retries"`
	CrcBad   []int    `json:"crc_bad_sectors,omitempty"`
	Missing  []int    `json:"missing_sectors,omitempty"`
}

// Statistics summarizes a completed or in-progress session.
type Statistics struct {
	TracksTotal     int `json:"tracks_total"`
	TracksOK        int `json:"tracks_ok"`
	TracksRetried   int `json:"tracks_retried"`
	SectorsCrcBad   int `json:"sectors_crc_bad"`
	SectorsMissing  int `json:"sectors_missing"`
}

// Output describes the session's produced artifact.
type Output struct {
	File string `json:"file,omitempty"`
	Hash string `json:"hash,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// Record is the top-level persisted session document. Field names are
// stable across versions; unknown keys on load are ignored by
// encoding/json's default decode behavior (no custom UnmarshalJSON is
// needed to get that).
type Record struct {
	ID             string            `json:"id"`
	Version        int               `json:"version"`
	StartTime      string            `json:"start_time"`
	EndTime        string            `json:"end_time,omitempty"`
	Operation      Operation         `json:"operation"`
	State          State             `json:"state"`
	Hardware       HardwareInfo      `json:"hardware"`
	Profile        string            `json:"profile,omitempty"`
	Format         string            `json:"format"`
	Parameters     map[string]string `json:"parameters,omitempty"`
	TrackOverrides map[string]string `json:"track_overrides,omitempty"`
	Tracks         []TrackStat       `json:"tracks,omitempty"`
	Statistics     Statistics        `json:"statistics"`
	Output         Output            `json:"output"`
	Notes          string            `json:"notes,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
	Errors         []string          `json:"errors,omitempty"`
}

const recordVersion = 1

// New builds an in-progress Record for the given id/operation.
func New(id string, op Operation, startTime string) *Record {
	return &Record{
		ID: id, Version: recordVersion, StartTime: startTime,
		Operation: op, State: StateInProgress,
		Parameters:     make(map[string]string),
		TrackOverrides: make(map[string]string),
	}
}

// Marshal encodes the Record as indented JSON.
func (r *Record) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Unmarshal decodes a Record from JSON, ignoring unknown top-level keys
// (the default behavior of encoding/json.Unmarshal into a struct).
func Unmarshal(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Save writes the Record to path, gzip-compressed when path ends in .gz.
func (r *Record) Save(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	if !hasGzipSuffix(path) {
		return os.WriteFile(path, data, 0644)
	}

	var buf bytes.Buffer
	gw, err := kzgzip.NewWriterLevel(&buf, kzgzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err := gw.Write(data); err != nil {
		return err
	}
	if err := gw.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Load reads a Record from path, transparently gzip-decompressing if the
// file begins with the gzip magic regardless of its extension.
func Load(path string) (*Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		gr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		raw, err = io.ReadAll(gr)
		if err != nil {
			return nil, err
		}
	}
	return Unmarshal(raw)
}

func hasGzipSuffix(path string) bool {
	return len(path) >= 3 && path[len(path)-3:] == ".gz"
}
