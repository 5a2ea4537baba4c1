package txn

import (
	"encoding/binary"

	"floppy/fault"
	"floppy/ioprim"
)

const (
	uftbMagic      = "UFTB"
	uftbHeaderSize = 4 + 4 + 4 // magic + version LE + op count LE
	uftbVersion    = 1

	// maxBackupEntrySize caps one op's serialized pre-image (§7
	// BackupTooLarge), well above any real track's byte length.
	maxBackupEntrySize = 1 << 20
)

// EncodeBackup serializes a Transaction's captured pre-images into the
// UFTB backup file format: magic, version (u32 LE), op count (u32 LE),
// then per op: cyl (u8), head (u8), valid (u8), size (u64 LE), data.
//
// The legacy on-disk format stored size as a native-endian size_t; this
// writer always emits u64 LE, matching the "implementations should
// normalize to u64 LE" guidance for readers that must accept both widths.
func EncodeBackup(t *Transaction) ([]byte, error) {
	t.mu.Lock()
	ops := t.ops
	t.mu.Unlock()

	out := make([]byte, uftbHeaderSize)
	copy(out[0:4], uftbMagic)
	binary.LittleEndian.PutUint32(out[4:8], uftbVersion)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(ops)))

	for _, op := range ops {
		if len(op.preImage) > maxBackupEntrySize {
			return nil, fault.New(fault.BackupTooLarge, "txn", nil)
		}
		entry := make([]byte, 3)
		entry[0] = byte(op.Cylinder)
		entry[1] = byte(op.Head)
		if op.preValid {
			entry[2] = 1
		}
		var sizeField [8]byte
		binary.LittleEndian.PutUint64(sizeField[:], uint64(len(op.preImage)))
		out = append(out, entry...)
		out = append(out, sizeField[:]...)
		out = append(out, op.preImage...)
	}
	return out, nil
}

// BackupEntry is one decoded UFTB record.
type BackupEntry struct {
	Cylinder int
	Head     int
	Valid    bool
	PreImage []byte
}

// DecodeBackup parses a UFTB backup file, re-validating every offset
// against the overall buffer length via checked arithmetic before the
// corresponding slice is read (§4.A/§9).
func DecodeBackup(data []byte) ([]BackupEntry, error) {
	cur := ioprim.NewCursor(data)
	magic, err := cur.Slice(0, 4)
	if err != nil || string(magic) != uftbMagic {
		return nil, fault.New(fault.Format, "txn/backup", err)
	}
	opCount, err := cur.U32LE(8)
	if err != nil {
		return nil, fault.New(fault.Format, "txn/backup", err)
	}

	entries := make([]BackupEntry, 0, opCount)
	offset := uftbHeaderSize
	for i := 0; i < int(opCount); i++ {
		cyl, err := cur.U8(offset)
		if err != nil {
			return nil, fault.AtOp(fault.Format, "txn/backup", i, err)
		}
		head, err := cur.U8(offset + 1)
		if err != nil {
			return nil, fault.AtOp(fault.Format, "txn/backup", i, err)
		}
		valid, err := cur.U8(offset + 2)
		if err != nil {
			return nil, fault.AtOp(fault.Format, "txn/backup", i, err)
		}
		size, err := cur.U64LE(offset + 3)
		if err != nil {
			return nil, fault.AtOp(fault.Format, "txn/backup", i, err)
		}
		if size > maxBackupEntrySize {
			return nil, fault.AtOp(fault.BackupTooLarge, "txn/backup", i, nil)
		}
		preImage, err := cur.Slice(offset+3+8, int(size))
		if err != nil {
			return nil, fault.AtOp(fault.Format, "txn/backup", i, err)
		}
		entries = append(entries, BackupEntry{
			Cylinder: int(cyl), Head: int(head), Valid: valid != 0,
			PreImage: append([]byte{}, preImage...),
		})
		offset += 3 + 8 + int(size)
	}
	return entries, nil
}

// RestoreFromBackup replays a decoded backup's pre-images through write,
// restoring every valid entry; invalid entries (captured before a failed
// read) are skipped rather than overwriting with empty data.
func RestoreFromBackup(entries []BackupEntry, write func(cyl, head int, data []byte) error) error {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !e.Valid {
			continue
		}
		if err := write(e.Cylinder, e.Head, e.PreImage); err != nil {
			return fault.AtOp(fault.IO, "txn/backup", i, err)
		}
	}
	return nil
}
