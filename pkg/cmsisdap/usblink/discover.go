package usblink

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"

	"github.com/OpenTraceLab/bsio/pkg/cmsisdap"
)

// InterfaceKind categorizes adapter families.
type InterfaceKind = cmsisdap.InterfaceKind

const (
	InterfaceKindCMSISDAP = cmsisdap.InterfaceKindCMSISDAP
	InterfaceKindSim      = cmsisdap.InterfaceKindSim
)

// InterfaceInfo describes a detected adapter interface/transport.
type InterfaceInfo struct {
	Kind         InterfaceKind
	Description  string
	VendorID     uint16
	ProductID    uint16
	Serial       string
	Manufacturer string
	Product      string
}

// Label returns a user-friendly description for the interface.
func (i InterfaceInfo) Label() string {
	if i.Description != "" {
		return i.Description
	}
	if i.Kind != "" {
		return fmt.Sprintf("%s (%04X:%04X)", string(i.Kind), i.VendorID, i.ProductID)
	}
	return fmt.Sprintf("Interface %04X:%04X", i.VendorID, i.ProductID)
}

type knownUSBDevice struct {
	VendorID    uint16
	ProductID   uint16
	Description string
}

var knownCMSISDAPVIDPIDs = []knownUSBDevice{
	{VendorID: VendorIDRaspberryPi, ProductID: ProductIDCMSISDAP, Description: "Raspberry Pi Debug Probe (CMSIS-DAP)"},
	{VendorID: 0x0d28, ProductID: 0x0204, Description: "DAPLink CMSIS-DAP"},
	{VendorID: 0x1366, ProductID: 0x0101, Description: "SEGGER J-Link CMSIS-DAP"},
	{VendorID: 0x03eb, ProductID: 0x2141, Description: "Atmel-ICE CMSIS-DAP"},
}

// Classify matches a VID:PID pair against the known CMSIS-DAP probes.
func Classify(vid, pid uint16) (InterfaceInfo, bool) {
	for _, known := range knownCMSISDAPVIDPIDs {
		if vid == known.VendorID && pid == known.ProductID {
			return InterfaceInfo{
				Kind:        InterfaceKindCMSISDAP,
				Description: known.Description,
				VendorID:    known.VendorID,
				ProductID:   known.ProductID,
			}, true
		}
	}
	return InterfaceInfo{}, false
}

// DiscoverInterfaces enumerates connected probes that match known VID/PID
// pairs. It always appends the simulator entry so commands can be exercised
// without hardware connected. Devices that cannot be opened for their string
// descriptors are still listed.
func DiscoverInterfaces(ctx context.Context) ([]InterfaceInfo, error) {
	var results []InterfaceInfo
	usb := gousb.NewContext()
	defer usb.Close()

	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		info, ok := Classify(uint16(desc.Vendor), uint16(desc.Product))
		if ok {
			results = append(results, info)
		}
		return ok
	})
	for _, dev := range devs {
		describe(results, dev)
		dev.Close()
	}
	if err != nil && !errors.Is(err, gousb.ErrorAccess) {
		return results, err
	}

	results = append(results, InterfaceInfo{
		Kind:        InterfaceKindSim,
		Description: "Simulator (no hardware)",
	})
	return results, ctx.Err()
}

// describe fills string descriptors into the first matching entry that has
// none yet.
func describe(results []InterfaceInfo, dev *gousb.Device) {
	for i := range results {
		r := &results[i]
		if r.VendorID != uint16(dev.Desc.Vendor) || r.ProductID != uint16(dev.Desc.Product) || r.Serial != "" {
			continue
		}
		r.Serial, _ = dev.SerialNumber()
		r.Manufacturer, _ = dev.Manufacturer()
		r.Product, _ = dev.Product()
		return
	}
}
