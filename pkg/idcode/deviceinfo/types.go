package deviceinfo

import "github.com/OpenTraceLab/bsio/pkg/idcode"

// DeviceInfo contains rich information about a JTAG device
type DeviceInfo struct {
	// Key fields
	IDCode       idcode.IDCode
	Manufacturer idcode.Manufacturer

	// Human-friendly
	Name        string // "XC3S200"
	Family      string // "Spartan-3"
	Description string // "200K-gate FPGA"
	Package     string // "FT256", if known

	// Capabilities / hints
	HasBoundaryScan bool
	HasARMCore      bool
	ARMCore         string // "Cortex-M3", "Cortex-A9", etc.
	IsFPGA          bool
	IsCPLD          bool
	IsMCU           bool

	// JTAG specifics
	IRLength     int
	UserRegs     int // USERn data registers reachable through the IR
	DatasheetURL string
}

// Known reports whether the entry came from the database.
func (d DeviceInfo) Known() bool {
	return d.IRLength != 0
}
