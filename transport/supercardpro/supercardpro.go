// Package supercardpro implements flux.Source against a SuperCard Pro USB-
// serial device. Grounded on supercardpro/supercardpro.go: the command
// framing (`[cmd][len][data...][checksum]`, checksum = 0x4a plus the sum
// of every preceding byte), command codes, and FluxInfo/FluxData record
// shapes are carried over; flux words are decoded by decodeSCPTicks in
// this package (big-endian 16-bit words with an overflow marker, per §4.C's
// SCP grammar).
package supercardpro

import (
	"context"
	"encoding/binary"
	"io"
	"time"

	"floppy/fault"
	"floppy/flux"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	VendorID  = 0x0403
	ProductID = 0x6015
	baudRate  = 115200
)

const (
	cmdSelA        = 0x80
	cmdSelB        = 0x81
	cmdDeselA      = 0x82
	cmdDeselB      = 0x83
	cmdMtrAOn      = 0x84
	cmdMtrAOff     = 0x85
	cmdMtrBOn      = 0x86
	cmdMtrBOff     = 0x87
	cmdSeek0       = 0x88
	cmdStepTo      = 0x89
	cmdSide        = 0x8a
	cmdReadFlux    = 0x90
	cmdGetFluxInfo = 0x91
	cmdSendRAMUSB  = 0xa5
	cmdWriteFlux   = 0xa6
	cmdSCPInfo     = 0xd0
)

const statusOK = 0x4f

// sampleTickNS is the SCP hardware's fixed flux-tick resolution: 25ns.
const sampleTickNS = 25

// Source implements flux.Source over a SuperCard Pro serial connection.
type Source struct {
	port         serial.Port
	serialNumber string
	drive        uint
	aborted      bool
}

var _ flux.Source = (*Source)(nil)

func (s *Source) Enumerate(ctx context.Context) ([]flux.DeviceInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fault.New(fault.IO, "supercardpro", err)
	}
	var out []flux.DeviceInfo
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		out = append(out, flux.DeviceInfo{Name: p.Name, SerialNumber: p.SerialNumber, Transport: "supercardpro"})
	}
	return out, nil
}

func (s *Source) Open(ctx context.Context, info flux.DeviceInfo) error {
	mode := &serial.Mode{BaudRate: baudRate}
	port, err := serial.Open(info.Name, mode)
	if err != nil {
		return fault.New(fault.IO, "supercardpro", err)
	}
	s.port = port
	s.serialNumber = info.SerialNumber

	if err := s.send(cmdSCPInfo, nil); err != nil {
		port.Close()
		return err
	}
	ver := make([]byte, 2)
	if _, err := io.ReadFull(s.port, ver); err != nil {
		port.Close()
		return fault.New(fault.IO, "supercardpro", err)
	}

	if err := s.send(cmdSelA, nil); err != nil {
		port.Close()
		return err
	}
	if err := s.send(cmdMtrAOn, nil); err != nil {
		port.Close()
		return err
	}
	return nil
}

// send writes a framed command: cmd byte, length byte, payload, then a
// checksum byte equal to 0x4a plus the sum of every preceding byte in the
// frame. It then reads and validates the two-byte [cmd_echo][status]
// response.
func (s *Source) send(cmd byte, data []byte) error {
	frame := append([]byte{cmd, byte(len(data))}, data...)
	var checksum byte = 0x4a
	for _, b := range frame {
		checksum += b
	}
	frame = append(frame, checksum)

	if _, err := s.port.Write(frame); err != nil {
		return fault.New(fault.IO, "supercardpro", err)
	}
	resp := make([]byte, 2)
	if _, err := io.ReadFull(s.port, resp); err != nil {
		return fault.New(fault.IO, "supercardpro", err)
	}
	if resp[0] != cmd {
		return fault.New(fault.Format, "supercardpro", nil)
	}
	if resp[1] != statusOK {
		return fault.New(fault.IO, "supercardpro", nil)
	}
	return nil
}

func (s *Source) Seek(ctx context.Context, cylinder int) error {
	if cylinder == 0 {
		return s.send(cmdSeek0, nil)
	}
	return s.send(cmdStepTo, []byte{byte(cylinder)})
}

func (s *Source) SelectHead(ctx context.Context, head int) error {
	if err := s.send(cmdSide, []byte{byte(head)}); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)
	return nil
}

func (s *Source) Motor(ctx context.Context, on bool) error {
	if on {
		return s.send(cmdMtrAOn, nil)
	}
	return s.send(cmdMtrAOff, nil)
}

// ReadFlux issues READFLUX for the requested revolution count, reads the
// per-revolution FluxInfo table (index time + bitcell count, big-endian),
// transfers the raw flux-tick buffer via SENDRAM_USB, then decodes each
// revolution's 16-bit big-endian tick words (with the 0x0000 overflow-
// marker convention of §4.C's SCP grammar).
func (s *Source) ReadFlux(ctx context.Context, revolutions int) ([]flux.Revolution, error) {
	if s.aborted {
		return nil, flux.ErrAborted
	}
	if revolutions > 5 {
		revolutions = 5
	}
	if err := s.send(cmdReadFlux, []byte{byte(revolutions), 1}); err != nil {
		return nil, err
	}
	if err := s.send(cmdGetFluxInfo, nil); err != nil {
		return nil, err
	}

	info := make([]byte, 40)
	if _, err := io.ReadFull(s.port, info); err != nil {
		return nil, fault.New(fault.IO, "supercardpro", err)
	}
	type revInfo struct{ indexTime, nrBitcells uint32 }
	var infos [5]revInfo
	for i := 0; i < 5; i++ {
		off := i * 8
		infos[i].indexTime = binary.BigEndian.Uint32(info[off : off+4])
		infos[i].nrBitcells = binary.BigEndian.Uint32(info[off+4 : off+8])
	}

	ramCmd := make([]byte, 8)
	binary.BigEndian.PutUint32(ramCmd[0:4], 0)
	binary.BigEndian.PutUint32(ramCmd[4:8], 512*1024)
	if err := s.send(cmdSendRAMUSB, ramCmd); err != nil {
		return nil, err
	}
	data := make([]byte, 512*1024)
	if _, err := io.ReadFull(s.port, data); err != nil {
		return nil, fault.New(fault.IO, "supercardpro", err)
	}

	var revs []flux.Revolution
	cursor := 0
	for i := 0; i < revolutions; i++ {
		n := int(infos[i].nrBitcells)
		if cursor+n*2 > len(data) {
			break
		}
		ns, err := decodeSCPTicks(data[cursor : cursor+n*2])
		if err != nil {
			return nil, err
		}
		cursor += n * 2
		revs = append(revs, flux.Revolution{
			TransitionsNS: ns,
			IndexPeriodNS: infos[i].indexTime * sampleTickNS,
		})
	}
	return revs, nil
}

// decodeSCPTicks decodes SCP's big-endian 16-bit tick-delta words: 0x0000
// is an overflow marker adding 0x10000 ticks to an accumulator before the
// next non-zero word; any other word emits a transition at the
// accumulated tick count x 25ns.
func decodeSCPTicks(raw []byte) ([]uint32, error) {
	if len(raw)%2 != 0 {
		return nil, fault.New(fault.Format, "supercardpro", nil)
	}
	var out []uint32
	var accum uint32
	for i := 0; i+2 <= len(raw); i += 2 {
		word := binary.BigEndian.Uint16(raw[i : i+2])
		if word == 0 {
			accum += 0x10000
			continue
		}
		accum += uint32(word)
		out = append(out, accum*sampleTickNS)
		accum = 0
	}
	return out, nil
}

func (s *Source) WriteFlux(ctx context.Context, rev flux.Revolution) error {
	if s.aborted {
		return flux.ErrAborted
	}
	return flux.ErrWriteUnsupported
}

func (s *Source) Abort(ctx context.Context) error {
	s.aborted = true
	return s.send(cmdDeselA, nil)
}

func (s *Source) Close() error {
	if s.port == nil {
		return nil
	}
	_ = s.send(cmdMtrAOff, nil)
	return s.port.Close()
}
