package ioprim

import (
	"floppy/fault"
	"testing"
)

func TestCursorU16LE(t *testing.T) {
	c := NewCursor([]byte{0x34, 0x12, 0xff})
	v, err := c.U16LE(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0x1234 {
		t.Fatalf("got 0x%04x, want 0x1234", v)
	}
}

func TestCursorOutOfBounds(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3})
	if _, err := c.U32LE(1); !fault.Is(err, fault.OutOfBounds) {
		t.Fatalf("expected OutOfBounds, got %v", err)
	}
}

func TestCursorNegativeOffsetRejected(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3})
	if _, err := c.Slice(-1, 2); !fault.Is(err, fault.OutOfBounds) {
		t.Fatalf("expected OutOfBounds, got %v", err)
	}
}

func TestCheckedAddOverflow(t *testing.T) {
	_, err := CheckedAdd(^uint64(0), 1)
	if !fault.Is(err, fault.Overflow) {
		t.Fatalf("expected Overflow, got %v", err)
	}
}

func TestCheckedAddIntNoOverflow(t *testing.T) {
	v, err := CheckedAddInt(10, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 30 {
		t.Fatalf("got %d, want 30", v)
	}
}

func TestCheckedMulIntOverflow(t *testing.T) {
	_, err := CheckedMulInt(1<<40, 1<<40)
	if !fault.Is(err, fault.Overflow) {
		t.Fatalf("expected Overflow, got %v", err)
	}
}
