package cmsisdap

import "time"

// InterfaceKind categorizes adapter families.
type InterfaceKind string

const (
	InterfaceKindCMSISDAP InterfaceKind = "cmsis-dap"
	InterfaceKindSim      InterfaceKind = "simulator"
)

const (
	// Raspberry Pi Debug Probe USB identifiers
	VendorIDRaspberryPi = 0x2E8A
	ProductIDCMSISDAP   = 0x000C

	// DefaultTimeout bounds one command/response transaction.
	DefaultTimeout = 5 * time.Second
)
