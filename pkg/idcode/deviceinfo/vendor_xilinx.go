package deviceinfo

// Xilinx device entries
func init() {
	const xilinx = 0x049

	spartan3 := func(name, gates string) DeviceInfo {
		return DeviceInfo{
			Name:            name,
			Family:          "Spartan-3",
			Description:     gates + " FPGA",
			HasBoundaryScan: true,
			IsFPGA:          true,
			IRLength:        6,
			UserRegs:        2,
			DatasheetURL:    "https://docs.amd.com/v/u/en-US/ds099",
		}
	}
	register(key{ManufacturerCode: xilinx, PartNumber: 0x140D}, spartan3("XC3S50", "50K-gate"))
	register(key{ManufacturerCode: xilinx, PartNumber: 0x1414}, spartan3("XC3S200", "200K-gate"))
	register(key{ManufacturerCode: xilinx, PartNumber: 0x141C}, spartan3("XC3S400", "400K-gate"))
	register(key{ManufacturerCode: xilinx, PartNumber: 0x1428}, spartan3("XC3S1000", "1M-gate"))
	register(key{ManufacturerCode: xilinx, PartNumber: 0x1434}, spartan3("XC3S1500", "1.5M-gate"))
	register(key{ManufacturerCode: xilinx, PartNumber: 0x1440}, spartan3("XC3S2000", "2M-gate"))

	// Virtex-5 and later parts expose USER3/USER4 through a 10-bit IR.
	register(key{ManufacturerCode: xilinx, PartNumber: 0x2A96}, DeviceInfo{
		Name:            "XC5VLX50T",
		Family:          "Virtex-5",
		Description:     "LXT platform FPGA",
		HasBoundaryScan: true,
		IsFPGA:          true,
		IRLength:        10,
		UserRegs:        4,
	})
}
