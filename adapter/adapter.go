// Package adapter discovers and opens a flux.Source for whichever
// supported hardware transport is plugged in. adapter/root.go's
// findAdapter walked a list of VID/PID-registered factories and returned
// the first adapter that opened; the same walk survives here, generalized
// from the teacher's one-off FloppyAdapter interface to flux.Source so any
// transport implementing it (including a future one) only needs to
// register itself, not be special-cased in the walk.
package adapter

import (
	"context"
	"fmt"
	"strconv"

	"floppy/flux"
	"floppy/transport/greaseweazle"
	"floppy/transport/kryoflux"
	"floppy/transport/supercardpro"

	"go.bug.st/serial/enumerator"
)

// Factory builds a fresh, unopened flux.Source for one transport.
type Factory func() flux.Source

// Registration pairs a transport's USB identity with its Factory.
type Registration struct {
	Name      string
	VendorID  uint16
	ProductID uint16
	Factory   Factory
}

// registry lists every transport adapter/cmd can discover, in the order
// they're tried when --controller is unset.
var registry = []Registration{
	{Name: "greaseweazle", VendorID: greaseweazle.VendorID, ProductID: greaseweazle.ProductID, Factory: func() flux.Source { return &greaseweazle.Source{} }},
	{Name: "supercardpro", VendorID: supercardpro.VendorID, ProductID: supercardpro.ProductID, Factory: func() flux.Source { return &supercardpro.Source{} }},
	{Name: "kryoflux", VendorID: kryoflux.VendorID, ProductID: kryoflux.ProductID, Factory: func() flux.Source { return &kryoflux.Source{} }},
}

// ErrNoDevice is returned by Find when no registered transport matches a
// connected port (or the requested --controller/--port names no match).
var ErrNoDevice = fmt.Errorf("no supported USB floppy adapter found")

// Find enumerates serial ports and opens the first matching registered
// transport. If controllerName is non-empty, only that transport is
// tried; if portName is non-empty, only that port is tried.
func Find(ctx context.Context, controllerName, portName string) (flux.Source, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	for _, reg := range registry {
		if controllerName != "" && reg.Name != controllerName {
			continue
		}
		for _, port := range ports {
			if portName != "" && port.Name != portName {
				continue
			}
			if !port.IsUSB {
				continue
			}
			vid, err := strconv.ParseUint(port.VID, 16, 16)
			if err != nil {
				continue
			}
			pid, err := strconv.ParseUint(port.PID, 16, 16)
			if err != nil {
				continue
			}
			if uint16(vid) != reg.VendorID || uint16(pid) != reg.ProductID {
				continue
			}
			src := reg.Factory()
			info := flux.DeviceInfo{Name: port.Name, SerialNumber: port.SerialNumber, Transport: reg.Name}
			if err := src.Open(ctx, info); err != nil {
				continue
			}
			return src, nil
		}
	}
	return nil, ErrNoDevice
}

// Names returns every registered transport's name, in registry order.
func Names() []string {
	names := make([]string, len(registry))
	for i, r := range registry {
		names[i] = r.Name
	}
	return names
}
