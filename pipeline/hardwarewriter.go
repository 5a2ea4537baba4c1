package pipeline

import (
	"context"
	"io"
	"sort"

	"floppy/container"
	"floppy/fault"
	"floppy/flux"

	"floppy/txn"
)

// HardwareWriter adapts a flux.Source to package txn's Writer interface, so
// a whole-disk write can go through a Transaction and get its backup/
// rollback guarantee instead of writing tracks one at a time with no way
// to undo a partial failure. Grounded on the observation that, unlike a
// file-backed container, real media DOES have a meaningful pre-image: the
// track's current flux pattern, read back before it's overwritten.
type HardwareWriter struct {
	Src flux.Source
}

var _ txn.Writer = (*HardwareWriter)(nil)

// ReadTrack seeks to (cylinder, head) and captures its current flux as the
// pre-image txn.Transaction restores on rollback.
func (h *HardwareWriter) ReadTrack(ctx context.Context, cylinder, head int) ([]byte, error) {
	if err := h.Src.Seek(ctx, cylinder); err != nil {
		return nil, err
	}
	if err := h.Src.SelectHead(ctx, head); err != nil {
		return nil, err
	}
	revs, err := h.Src.ReadFlux(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, fault.At(fault.IO, "pipeline", cylinder, head, nil)
	}
	return flux.RevolutionToWireBytes(revs[0]), nil
}

// WriteTrack seeks to (cylinder, head) and writes data (as produced by
// ReadTrack, or by encoding a Container's track for the write path).
func (h *HardwareWriter) WriteTrack(ctx context.Context, cylinder, head int, data []byte) error {
	rev, err := flux.WireBytesToRevolution(data)
	if err != nil {
		return err
	}
	if err := h.Src.Seek(ctx, cylinder); err != nil {
		return err
	}
	if err := h.Src.SelectHead(ctx, head); err != nil {
		return err
	}
	return h.Src.WriteFlux(ctx, rev)
}

// NewWriteTransaction builds a txn.Transaction that writes every track of c
// to dst, resolving each track's flux the same way WriteDisk does (captured
// flux verbatim, or synthesized from Sectors via specFor), so a cmd/write
// run gets backup/rollback across the whole disk instead of a bare
// best-effort per-track loop. Tracks are queued in (cylinder, head) order
// so Commit's op indices, and any failure reporting keyed by them, are
// reproducible between runs of the same Container.
//
// logWriter is the durability contract's log_path: when non-nil, every
// Commit/rollback event is appended to it (see txn.Logger). Pass nil to get
// a Transaction with no recovery log, exactly as before this parameter
// existed.
func NewWriteTransaction(dst flux.Source, c *container.Container, specFor func(cyl int) TrackSpec, autoRollback bool, logWriter io.Writer) (*txn.Transaction, error) {
	keys := make([]container.TrackKey, 0, len(c.Tracks))
	for key, img := range c.Tracks {
		if img != nil {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Cylinder != keys[j].Cylinder {
			return keys[i].Cylinder < keys[j].Cylinder
		}
		return keys[i].Head < keys[j].Head
	})

	t := txn.New(&HardwareWriter{Src: dst}, autoRollback)
	if logWriter != nil {
		t.SetLogger(txn.NewLogger(logWriter))
	}
	for _, key := range keys {
		img := c.Tracks[key]
		rev, err := ResolveRevolution(img, c.Geometry, key.Cylinder, key.Head, specFor)
		if err != nil {
			continue
		}
		if err := t.AddOp(key.Cylinder, key.Head, flux.RevolutionToWireBytes(rev)); err != nil {
			return nil, err
		}
	}
	return t, nil
}
