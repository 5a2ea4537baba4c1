// Package greaseweazle implements flux.Source against a Greaseweazle-
// compatible USB-serial device. Grounded on greaseweazle/greaseweazle.go:
// the framed command/ACK protocol and command codes are carried over
// directly, but flux decoding no longer happens inline here - this package
// only extracts timed transitions (via flux.DecodeWire) and hands them to
// package pll and package decoder, per the shared pipeline (§4.D, §5).
package greaseweazle

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"floppy/fault"
	"floppy/flux"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	VendorID  = 0x1209
	ProductID = 0x4d69
)

const (
	cmdGetInfo      = 0
	cmdSeek         = 2
	cmdHead         = 3
	cmdMotor        = 6
	cmdReadFlux     = 7
	cmdWriteFlux    = 8
	cmdGetFluxStatus = 9
	cmdSelect       = 12
	cmdDeselect     = 13
	cmdSetBusType   = 14
)

const (
	getinfoFirmware = 0
)

const (
	busIBMPC = 1
)

// ackFromByte maps the wire ACK byte onto flux.AckCode; the taxonomy is
// identical to the one baked into flux.AckCode (§6).
func ackFromByte(b byte) flux.AckCode { return flux.AckCode(b) }

// Source implements flux.Source over a Greaseweazle serial connection.
type Source struct {
	port         serial.Port
	serialNumber string
	sampleFreqHz uint32
	aborted      bool
}

var _ flux.Source = (*Source)(nil)

func (s *Source) Enumerate(ctx context.Context) ([]flux.DeviceInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fault.New(fault.IO, "greaseweazle", err)
	}
	var out []flux.DeviceInfo
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		out = append(out, flux.DeviceInfo{
			Name:         p.Name,
			SerialNumber: p.SerialNumber,
			Transport:    "greaseweazle",
		})
	}
	return out, nil
}

func (s *Source) Open(ctx context.Context, info flux.DeviceInfo) error {
	mode := &serial.Mode{BaudRate: 9600}
	port, err := serial.Open(info.Name, mode)
	if err != nil {
		return fault.New(fault.IO, "greaseweazle", err)
	}
	s.port = port
	s.serialNumber = info.SerialNumber

	fw, err := s.fetchFirmwareInfo()
	if err != nil {
		port.Close()
		return err
	}
	s.sampleFreqHz = fw.sampleFreqHz

	// Twiddle the baud rate: signals the device to reset its data stream.
	if err := port.SetMode(&serial.Mode{BaudRate: 10000}); err != nil {
		port.Close()
		return fault.New(fault.IO, "greaseweazle", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := port.SetMode(&serial.Mode{BaudRate: 9600}); err != nil {
		port.Close()
		return fault.New(fault.IO, "greaseweazle", err)
	}

	if err := s.doCommand([]byte{cmdSetBusType, 3, busIBMPC}); err != nil {
		port.Close()
		return err
	}
	return nil
}

type firmwareInfo struct {
	sampleFreqHz uint32
}

func (s *Source) fetchFirmwareInfo() (firmwareInfo, error) {
	var info firmwareInfo
	if err := s.doCommand([]byte{cmdGetInfo, 3, getinfoFirmware}); err != nil {
		return info, err
	}
	response := make([]byte, 32)
	if _, err := io.ReadFull(s.port, response); err != nil {
		return info, fault.New(fault.IO, "greaseweazle", err)
	}
	info.sampleFreqHz = binary.LittleEndian.Uint32(response[4:8])
	return info, nil
}

func (s *Source) doCommand(cmd []byte) error {
	if _, err := s.port.Write(cmd); err != nil {
		return fault.New(fault.IO, "greaseweazle", err)
	}
	ack := make([]byte, 2)
	if _, err := io.ReadFull(s.port, ack); err != nil {
		return fault.New(fault.IO, "greaseweazle", err)
	}
	if ack[0] != cmd[0] {
		return fault.New(fault.Format, "greaseweazle", fmt.Errorf("command echo mismatch: got 0x%02x want 0x%02x", ack[0], cmd[0]))
	}
	return flux.AckError(ackFromByte(ack[1]))
}

func (s *Source) Seek(ctx context.Context, cylinder int) error {
	return s.doCommand([]byte{cmdSeek, 3, byte(cylinder)})
}

func (s *Source) SelectHead(ctx context.Context, head int) error {
	return s.doCommand([]byte{cmdHead, 3, byte(head)})
}

func (s *Source) Motor(ctx context.Context, on bool) error {
	var state byte
	if on {
		state = 1
	}
	return s.doCommand([]byte{cmdMotor, 4, 0, state})
}

// ReadFlux issues CMD_READ_FLUX for the requested revolution count, then
// decodes the raw wire stream into flux.Revolution values via
// flux.DecodeWire. Grounded on Client.ReadFlux, generalized to stop at the
// requested index count rather than the caller's own loop.
func (s *Source) ReadFlux(ctx context.Context, revolutions int) ([]flux.Revolution, error) {
	if s.aborted {
		return nil, flux.ErrAborted
	}
	cmd := make([]byte, 8)
	cmd[0] = cmdReadFlux
	cmd[1] = 8
	binary.LittleEndian.PutUint32(cmd[2:6], 0)
	binary.LittleEndian.PutUint16(cmd[6:8], uint16(revolutions))
	if err := s.doCommand(cmd); err != nil {
		return nil, err
	}

	var raw []byte
	buf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(s.port, buf); err != nil {
			return nil, fault.New(fault.IO, "greaseweazle", err)
		}
		raw = append(raw, buf[0])
		if buf[0] == 0 {
			break
		}
	}
	if err := s.doCommand([]byte{cmdGetFluxStatus, 2}); err != nil {
		return nil, err
	}

	deltas, indexAt, err := flux.DecodeWire(raw)
	if err != nil {
		return nil, err
	}
	return splitAtIndex(deltas, indexAt, s.sampleFreqHz), nil
}

// splitAtIndex groups a flat tick-delta stream into per-revolution
// flux.Revolution values at each index-pulse boundary, converting ticks to
// nanoseconds using the device's sample frequency.
func splitAtIndex(deltas []uint32, indexAt []int, sampleFreqHz uint32) []flux.Revolution {
	if sampleFreqHz == 0 {
		sampleFreqHz = 72_000_000
	}
	nsPerTick := 1e9 / float64(sampleFreqHz)
	bounds := append(append([]int{0}, indexAt...), len(deltas))
	var revs []flux.Revolution
	for i := 0; i+1 < len(bounds); i++ {
		start, end := bounds[i], bounds[i+1]
		if start >= end {
			continue
		}
		seg := deltas[start:end]
		ns := make([]uint32, len(seg))
		var total uint64
		for j, d := range seg {
			v := uint32(float64(d) * nsPerTick)
			ns[j] = v
			total += uint64(v)
		}
		revs = append(revs, flux.Revolution{TransitionsNS: ns, IndexPeriodNS: uint32(total)})
	}
	return revs
}

func (s *Source) WriteFlux(ctx context.Context, rev flux.Revolution) error {
	if s.aborted {
		return flux.ErrAborted
	}
	sampleFreqHz := s.sampleFreqHz
	if sampleFreqHz == 0 {
		sampleFreqHz = 72_000_000
	}
	ticksPerNs := float64(sampleFreqHz) / 1e9
	deltas := make([]uint32, len(rev.TransitionsNS))
	for i, ns := range rev.TransitionsNS {
		deltas[i] = uint32(float64(ns) * ticksPerNs)
	}
	wire := flux.EncodeWire(deltas, nil)

	cmd := []byte{cmdWriteFlux, 2}
	if err := s.doCommand(cmd); err != nil {
		return err
	}
	if _, err := s.port.Write(wire); err != nil {
		return fault.New(fault.IO, "greaseweazle", err)
	}
	return nil
}

func (s *Source) Abort(ctx context.Context) error {
	s.aborted = true
	return s.doCommand([]byte{cmdDeselect, 2})
}

func (s *Source) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
