// Package kryoflux implements flux.Source against a KryoFlux USB-serial
// device. kryoflux/kryoflux.go (the teacher's own client) never went past
// opening the serial port - its init routine is a documented TODO with no
// protocol implemented - so the stream framing here (OOB blocks, Flux2/
// Nop1-3/Ovl16 byte codes) is grounded on the publicly documented KryoFlux
// stream-file format instead of on any further teacher code; VendorID,
// ProductID, and the 115200 baud serial open are carried over unchanged.
package kryoflux

import (
	"context"
	"encoding/binary"
	"io"

	"floppy/fault"
	"floppy/flux"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	VendorID  = 0x03eb
	ProductID = 0x6124
	baudRate  = 115200
)

// Stream byte codes (KryoFlux stream-file format).
const (
	codeFlux2Min = 0x00
	codeFlux2Max = 0x07
	codeNop1     = 0x08
	codeNop2     = 0x09
	codeNop3     = 0x0a
	codeOvl16    = 0x0b
	codeFlux3    = 0x0c
	codeOOB      = 0x0d
)

// OOB block types.
const (
	oobInvalid  = 0x00
	oobStreamInfo = 0x01
	oobIndex    = 0x02
	oobStreamEnd = 0x03
	oobKFInfo   = 0x04
	oobEOF      = 0x0d
)

// sckFreqHz is the sample clock ticksToNS converts with: 24.027428MHz
// divided by 2 (about 12.01MHz, ~83.2ns per tick).
const sckFreqHz = 24027428.0 / 2

// Source implements flux.Source over a KryoFlux serial connection, reading
// the device's native stream-file wire format directly off the port.
type Source struct {
	port         serial.Port
	serialNumber string
	cylinder     int
	head         int
	aborted      bool
}

var _ flux.Source = (*Source)(nil)

func (s *Source) Enumerate(ctx context.Context) ([]flux.DeviceInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fault.New(fault.IO, "kryoflux", err)
	}
	var out []flux.DeviceInfo
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		out = append(out, flux.DeviceInfo{Name: p.Name, SerialNumber: p.SerialNumber, Transport: "kryoflux"})
	}
	return out, nil
}

func (s *Source) Open(ctx context.Context, info flux.DeviceInfo) error {
	mode := &serial.Mode{BaudRate: baudRate}
	port, err := serial.Open(info.Name, mode)
	if err != nil {
		return fault.New(fault.IO, "kryoflux", err)
	}
	s.port = port
	s.serialNumber = info.SerialNumber
	return nil
}

// Seek issues the host-side "seek" command understood by the KryoFlux
// firmware's text command channel: "\x01\x01" followed by the ASCII
// cylinder number. The device has no separate step-to-zero command; a
// seek to 0 is just the general case.
func (s *Source) Seek(ctx context.Context, cylinder int) error {
	s.cylinder = cylinder
	cmd := append([]byte{0x01, 0x01}, []byte(itoa(cylinder))...)
	_, err := s.port.Write(cmd)
	if err != nil {
		return fault.New(fault.IO, "kryoflux", err)
	}
	return s.readAck()
}

func (s *Source) SelectHead(ctx context.Context, head int) error {
	s.head = head
	cmd := []byte{0x01, 0x02, byte('0' + head)}
	if _, err := s.port.Write(cmd); err != nil {
		return fault.New(fault.IO, "kryoflux", err)
	}
	return s.readAck()
}

func (s *Source) Motor(ctx context.Context, on bool) error {
	b := byte('0')
	if on {
		b = '1'
	}
	cmd := []byte{0x01, 0x03, b}
	if _, err := s.port.Write(cmd); err != nil {
		return fault.New(fault.IO, "kryoflux", err)
	}
	return s.readAck()
}

func (s *Source) readAck() error {
	resp := make([]byte, 1)
	if _, err := io.ReadFull(s.port, resp); err != nil {
		return fault.New(fault.IO, "kryoflux", err)
	}
	if resp[0] != 0x00 {
		return fault.New(fault.IO, "kryoflux", nil)
	}
	return nil
}

// ReadFlux issues a stream-read command and decodes the raw KryoFlux
// stream format directly: Flux2 codes (0x00-0x07) form the high byte of a
// 16-bit big-endian tick value with the following byte as the low byte,
// Ovl16 (0x0b) adds 0x10000 ticks to the next decoded value, Nop1-3 are
// padding with no effect on the tick stream, and OOB blocks (0x0d) carry
// index-pulse and end-of-stream markers out of band from flux data.
// Each stream-end OOB block closes one revolution; reading continues until
// the requested number of revolutions is collected or an EOF block arrives.
func (s *Source) ReadFlux(ctx context.Context, revolutions int) ([]flux.Revolution, error) {
	if s.aborted {
		return nil, flux.ErrAborted
	}
	cmd := []byte{0x01, 0x04}
	if _, err := s.port.Write(cmd); err != nil {
		return nil, fault.New(fault.IO, "kryoflux", err)
	}

	var revs []flux.Revolution
	var transitions []uint32
	var accum uint32
	indexTicks := make([]uint32, 0, 4)
	buf := make([]byte, 1)

	for len(revs) < revolutions {
		if _, err := io.ReadFull(s.port, buf); err != nil {
			return nil, fault.New(fault.IO, "kryoflux", err)
		}
		b := buf[0]
		switch {
		case b <= codeFlux2Max:
			lo := make([]byte, 1)
			if _, err := io.ReadFull(s.port, lo); err != nil {
				return nil, fault.New(fault.IO, "kryoflux", err)
			}
			tick := accum + uint32(b)<<8 + uint32(lo[0])
			transitions = append(transitions, ticksToNS(tick))
			accum = 0
		case b == codeNop1:
			// no payload
		case b == codeNop2:
			skip := make([]byte, 1)
			io.ReadFull(s.port, skip)
		case b == codeNop3:
			skip := make([]byte, 2)
			io.ReadFull(s.port, skip)
		case b == codeOvl16:
			accum += 0x10000
		case b == codeFlux3:
			rest := make([]byte, 2)
			if _, err := io.ReadFull(s.port, rest); err != nil {
				return nil, fault.New(fault.IO, "kryoflux", err)
			}
			tick := accum + uint32(rest[0])<<8 + uint32(rest[1])
			transitions = append(transitions, ticksToNS(tick))
			accum = 0
		case b == codeOOB:
			blockType, size, payload, err := s.readOOB()
			if err != nil {
				return nil, err
			}
			switch blockType {
			case oobIndex:
				if len(payload) >= 12 {
					indexTicks = append(indexTicks, binary.LittleEndian.Uint32(payload[4:8]))
				}
			case oobStreamEnd:
				revs = append(revs, flux.Revolution{
					TransitionsNS: transitions,
					IndexPeriodNS: lastOrZero(indexTicks, ticksToNS),
				})
				transitions = nil
			case oobEOF:
				_ = size
				return revs, nil
			}
		default:
			tick := accum + uint32(b)
			transitions = append(transitions, ticksToNS(tick))
			accum = 0
		}
	}
	return revs, nil
}

// readOOB reads a KryoFlux out-of-band block: type byte, 16-bit LE size,
// then size bytes of payload.
func (s *Source) readOOB() (blockType byte, size uint16, payload []byte, err error) {
	hdr := make([]byte, 3)
	if _, err = io.ReadFull(s.port, hdr); err != nil {
		return 0, 0, nil, fault.New(fault.IO, "kryoflux", err)
	}
	blockType = hdr[0]
	size = binary.LittleEndian.Uint16(hdr[1:3])
	if size > 0 {
		payload = make([]byte, size)
		if _, err = io.ReadFull(s.port, payload); err != nil {
			return 0, 0, nil, fault.New(fault.IO, "kryoflux", err)
		}
	}
	return blockType, size, payload, nil
}

func ticksToNS(ticks uint32) uint32 {
	return uint32(float64(ticks) * 1e9 / sckFreqHz)
}

func lastOrZero(vals []uint32, conv func(uint32) uint32) uint32 {
	if len(vals) == 0 {
		return 0
	}
	return conv(vals[len(vals)-1])
}

// WriteFlux is unsupported: the KryoFlux stream is a capture-only format
// and the device has no documented flux-write command.
func (s *Source) WriteFlux(ctx context.Context, rev flux.Revolution) error {
	return flux.ErrWriteUnsupported
}

func (s *Source) Abort(ctx context.Context) error {
	s.aborted = true
	if s.port == nil {
		return nil
	}
	_, err := s.port.Write([]byte{0x01, 0x0d})
	if err != nil {
		return fault.New(fault.IO, "kryoflux", err)
	}
	return nil
}

func (s *Source) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
