// Package usblink carries CMSIS-DAP packets over USB bulk endpoints with gousb
// and enumerates the probes attached to the host.
package usblink

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/OpenTraceLab/bsio/pkg/cmsisdap"
	"github.com/OpenTraceLab/bsio/pkg/jtag"
)

const (
	VendorIDRaspberryPi = cmsisdap.VendorIDRaspberryPi
	ProductIDCMSISDAP   = cmsisdap.ProductIDCMSISDAP

	// Default packet size for CMSIS-DAP v1/v2
	DefaultPacketSize = cmsisdap.DefaultPacketSize
	DefaultTimeout    = cmsisdap.DefaultTimeout
)

// Link is a claimed CMSIS-DAP vendor interface. It implements cmsisdap.Link.
type Link struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	packetSize int
	timeout    time.Duration
}

// Open finds the first device with the given VID:PID and claims its
// CMSIS-DAP interface. A zero timeout selects DefaultTimeout.
func Open(vid, pid uint16, timeout time.Duration) (*Link, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, jtag.NewError("usb open", jtag.CodeUSB, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, jtag.NewError("usb open", jtag.CodeUSB,
			fmt.Errorf("device not found (VID:0x%04X PID:0x%04X)", vid, pid))
	}

	// Not supported on every platform; the claim below reports real failures.
	_ = dev.SetAutoDetach(true)

	l := &Link{
		ctx:        ctx,
		dev:        dev,
		packetSize: DefaultPacketSize,
		timeout:    timeout,
	}
	if err := l.claimInterface(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// claimInterface finds and claims the CMSIS-DAP vendor interface
func (l *Link) claimInterface() error {
	cfg, err := l.dev.Config(1)
	if err != nil {
		return jtag.NewError("usb config", jtag.CodeUSB, err)
	}
	l.cfg = cfg

	// CMSIS-DAP v2 uses a vendor-specific class (0xFF); fall back to
	// interface 0 for probes that do not advertise it.
	vendorIntfNum := 0
	for _, intf := range cfg.Desc.Interfaces {
		if len(intf.AltSettings) > 0 && intf.AltSettings[0].Class == gousb.ClassVendorSpec {
			vendorIntfNum = intf.Number
			break
		}
	}

	intf, err := cfg.Interface(vendorIntfNum, 0)
	if err != nil {
		return jtag.NewError("usb claim", jtag.CodeUSB,
			fmt.Errorf("failed to claim interface %d: %w", vendorIntfNum, err))
	}
	l.intf = intf

	return l.findEndpoints()
}

// findEndpoints discovers the bulk IN and OUT endpoints
func (l *Link) findEndpoints() error {
	var outAddr, inAddr int
	for _, ep := range l.intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch {
		case ep.Direction == gousb.EndpointDirectionOut && outAddr == 0:
			outAddr = ep.Number
		case ep.Direction == gousb.EndpointDirectionIn && inAddr == 0:
			inAddr = ep.Number
			l.packetSize = ep.MaxPacketSize
		}
	}
	if outAddr == 0 {
		return jtag.NewError("usb endpoints", jtag.CodeUSB, fmt.Errorf("bulk OUT endpoint not found"))
	}
	if inAddr == 0 {
		return jtag.NewError("usb endpoints", jtag.CodeUSB, fmt.Errorf("bulk IN endpoint not found"))
	}

	epOut, err := l.intf.OutEndpoint(outAddr)
	if err != nil {
		return jtag.NewError("usb endpoints", jtag.CodeUSB, fmt.Errorf("failed to open OUT endpoint: %w", err))
	}
	l.epOut = epOut

	epIn, err := l.intf.InEndpoint(inAddr)
	if err != nil {
		return jtag.NewError("usb endpoints", jtag.CodeUSB, fmt.Errorf("failed to open IN endpoint: %w", err))
	}
	l.epIn = epIn
	return nil
}

func (l *Link) usbError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return jtag.NewError(op, jtag.CodeTimeout, fmt.Errorf("%w after %s", err, l.timeout))
	}
	return jtag.NewError(op, jtag.CodeUSB, err)
}

// WriteRead performs a command/response transaction. The command is padded
// to the packet size as CMSIS-DAP reports are fixed length.
func (l *Link) WriteRead(cmd []byte) ([]byte, error) {
	if len(cmd) > l.packetSize {
		return nil, jtag.BadParameter("usb write", "command of %d bytes exceeds packet size %d", len(cmd), l.packetSize)
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	packet := make([]byte, l.packetSize)
	copy(packet, cmd)
	if _, err := l.epOut.WriteContext(ctx, packet); err != nil {
		return nil, l.usbError(ctx, "usb write", err)
	}

	resp := make([]byte, l.packetSize)
	n, err := l.epIn.ReadContext(ctx, resp)
	if err != nil {
		return nil, l.usbError(ctx, "usb read", err)
	}
	return resp[:n], nil
}

// PacketSize returns the bulk IN packet size reported by the endpoint.
func (l *Link) PacketSize() int {
	return l.packetSize
}

// SetTimeout sets the per-transaction timeout
func (l *Link) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		l.timeout = timeout
	}
}

// Close releases USB resources
func (l *Link) Close() error {
	if l.intf != nil {
		l.intf.Close()
		l.intf = nil
	}
	var err error
	if l.cfg != nil {
		err = l.cfg.Close()
		l.cfg = nil
	}
	if l.dev != nil {
		if cerr := l.dev.Close(); err == nil {
			err = cerr
		}
		l.dev = nil
	}
	if l.ctx != nil {
		if cerr := l.ctx.Close(); err == nil {
			err = cerr
		}
		l.ctx = nil
	}
	return err
}
