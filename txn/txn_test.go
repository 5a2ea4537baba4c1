package txn

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"floppy/fault"
)

type memWriter struct {
	tracks map[[2]int][]byte
	failAt int // WriteTrack call index that should fail, -1 for never
	calls  int
}

func newMemWriter() *memWriter {
	return &memWriter{tracks: make(map[[2]int][]byte), failAt: -1}
}

func (m *memWriter) ReadTrack(ctx context.Context, cyl, head int) ([]byte, error) {
	return append([]byte{}, m.tracks[[2]int{cyl, head}]...), nil
}

func (m *memWriter) WriteTrack(ctx context.Context, cyl, head int, data []byte) error {
	defer func() { m.calls++ }()
	if m.calls == m.failAt {
		return fault.New(fault.IO, "txn_test", nil)
	}
	m.tracks[[2]int{cyl, head}] = append([]byte{}, data...)
	return nil
}

func TestCommitAppliesAllOps(t *testing.T) {
	w := newMemWriter()
	tx := New(w, true)
	if err := tx.AddOp(0, 0, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := tx.AddOp(1, 0, []byte("b")); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if tx.State() != StateCommitted {
		t.Fatalf("state = %v, want Committed", tx.State())
	}
	if !bytes.Equal(w.tracks[[2]int{0, 0}], []byte("a")) {
		t.Fatalf("track 0 not written")
	}
}

func TestCommitRollsBackOnFailure(t *testing.T) {
	w := newMemWriter()
	w.tracks[[2]int{0, 0}] = []byte("original")

	tx := New(w, true)
	if err := tx.AddOp(0, 0, []byte("new")); err != nil {
		t.Fatal(err)
	}
	if err := tx.AddOp(1, 0, []byte("other")); err != nil {
		t.Fatal(err)
	}
	w.failAt = 1 // second WriteTrack call fails

	err := tx.Commit(context.Background())
	if err == nil {
		t.Fatal("expected Commit to fail")
	}
	if tx.State() != StateRolledBack {
		t.Fatalf("state = %v, want RolledBack", tx.State())
	}
	if !bytes.Equal(w.tracks[[2]int{0, 0}], []byte("original")) {
		t.Fatalf("track 0 not restored to pre-image, got %q", w.tracks[[2]int{0, 0}])
	}
}

func TestAddOpRejectsBeyondCap(t *testing.T) {
	w := newMemWriter()
	tx := New(w, false)
	for i := 0; i < maxOps; i++ {
		if err := tx.AddOp(i, 0, nil); err != nil {
			t.Fatalf("op %d: unexpected error %v", i, err)
		}
	}
	if err := tx.AddOp(maxOps, 0, nil); !fault.Is(err, fault.LimitExceeded) {
		t.Fatalf("257th AddOp = %v, want LimitExceeded", err)
	}
}

func TestBackupRoundTrip(t *testing.T) {
	w := newMemWriter()
	w.tracks[[2]int{2, 1}] = []byte("pre-image")

	tx := New(w, false)
	if err := tx.AddOp(2, 1, []byte("post-image")); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	encoded, err := EncodeBackup(tx)
	if err != nil {
		t.Fatalf("EncodeBackup: %v", err)
	}
	entries, err := DecodeBackup(encoded)
	if err != nil {
		t.Fatalf("DecodeBackup: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if string(entries[0].PreImage) != "pre-image" {
		t.Fatalf("pre-image = %q", entries[0].PreImage)
	}
}

func TestCommitWritesRecoveryLog(t *testing.T) {
	w := newMemWriter()
	tx := New(w, true)
	var logBuf bytes.Buffer
	tx.SetLogger(NewLogger(&logBuf))

	if err := tx.AddOp(0, 0, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	logText := logBuf.String()
	events := ReadLog(strings.NewReader(logText))
	if len(events) == 0 {
		t.Fatal("expected recovery-log events after a logged Commit")
	}
	if events[len(events)-1].Kind != EventTxnCommit {
		t.Fatalf("last event = %v, want %v", events[len(events)-1].Kind, EventTxnCommit)
	}
	if LastIncompleteOp(events) != -1 {
		t.Fatalf("LastIncompleteOp after a clean commit = %d, want -1", LastIncompleteOp(events))
	}
}

func TestFailedCommitLogsAbortAndRollback(t *testing.T) {
	w := newMemWriter()
	w.tracks[[2]int{0, 0}] = []byte("original")
	tx := New(w, true)
	var logBuf bytes.Buffer
	tx.SetLogger(NewLogger(&logBuf))

	if err := tx.AddOp(0, 0, []byte("new")); err != nil {
		t.Fatal(err)
	}
	if err := tx.AddOp(1, 0, []byte("other")); err != nil {
		t.Fatal(err)
	}
	w.failAt = 1

	if err := tx.Commit(context.Background()); err == nil {
		t.Fatal("expected Commit to fail")
	}

	logText := logBuf.String()
	if !strings.Contains(logText, string(EventTxnAbort)) {
		t.Fatalf("log missing txn_abort line: %q", logText)
	}
	if !strings.Contains(logText, string(EventRollback)) {
		t.Fatalf("log missing rollback line: %q", logText)
	}

	// A completed abort+rollback sequence is a resolved failure, not a
	// crash left mid-op, so a recovery reader has nothing left to resume.
	events := ReadLog(strings.NewReader(logText))
	if got := LastIncompleteOp(events); got != -1 {
		t.Fatalf("LastIncompleteOp after a logged rollback = %d, want -1", got)
	}
}

func TestLastIncompleteOp(t *testing.T) {
	events := []Event{
		{Kind: EventOpStart, OpIndex: 0},
		{Kind: EventOpCommit, OpIndex: 0},
		{Kind: EventOpStart, OpIndex: 1},
	}
	if got := LastIncompleteOp(events); got != 1 {
		t.Fatalf("LastIncompleteOp = %d, want 1", got)
	}

	clean := append(events, Event{Kind: EventTxnCommit})
	if got := LastIncompleteOp(clean); got != -1 {
		t.Fatalf("LastIncompleteOp after commit = %d, want -1", got)
	}
}
