package ioprim

import (
	"floppy/fault"
	"math"
)

// CheckedAdd returns a+b, or fault.Overflow if the sum would wrap a uint64.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fault.New(fault.Overflow, "ioprim", nil)
	}
	return sum, nil
}

// CheckedMul returns a*b, or fault.Overflow if the product would wrap a uint64.
func CheckedMul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	p := a * b
	if p/a != b {
		return 0, fault.New(fault.Overflow, "ioprim", nil)
	}
	return p, nil
}

// CheckedAddInt is the int-width convenience form used by offset arithmetic
// throughout the container parsers; it rejects negative operands (which
// never arise from a legitimate length) in addition to overflow.
func CheckedAddInt(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, fault.New(fault.Overflow, "ioprim", nil)
	}
	sum, err := CheckedAdd(uint64(a), uint64(b))
	if err != nil {
		return 0, err
	}
	if sum > math.MaxInt {
		return 0, fault.New(fault.Overflow, "ioprim", nil)
	}
	return int(sum), nil
}

// CheckedMulInt is the int-width convenience form of CheckedMul.
func CheckedMulInt(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, fault.New(fault.Overflow, "ioprim", nil)
	}
	p, err := CheckedMul(uint64(a), uint64(b))
	if err != nil {
		return 0, err
	}
	if p > math.MaxInt {
		return 0, fault.New(fault.Overflow, "ioprim", nil)
	}
	return int(p), nil
}
