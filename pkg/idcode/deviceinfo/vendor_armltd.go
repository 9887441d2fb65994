package deviceinfo

// ARM debug port entries. These show up ahead of the FPGA on mixed chains.
func init() {
	const arm = 0x23B

	register(key{ManufacturerCode: arm, PartNumber: 0xBA00}, DeviceInfo{
		Name:        "JTAG-DP",
		Family:      "CoreSight",
		Description: "ARM JTAG debug port",
		HasARMCore:  true,
		ARMCore:     "Cortex-M3/M4",
		IsMCU:       true,
		IRLength:    4,
	})
}
