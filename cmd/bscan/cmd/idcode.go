package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/bsio/pkg/idcode"
	"github.com/OpenTraceLab/bsio/pkg/idcode/deviceinfo"
)

var idcodeCmd = &cobra.Command{
	Use:   "idcode",
	Short: "Read the device IDCODE",
	Long: `Reset the TAP, load the IDCODE instruction and read the 32-bit identification
register. The code is decoded into manufacturer, part and version and matched
against the built-in device database.`,
	Args: cobra.NoArgs,
	RunE: runIDCode,
}

func init() {
	rootCmd.AddCommand(idcodeCmd)
}

func runIDCode(cmd *cobra.Command, args []string) error {
	ctl, err := openSession()
	if err != nil {
		return err
	}
	defer closeSession(ctl)

	dev, raw, err := ctl.ReadDeviceID()
	if err != nil {
		return fmt.Errorf("read IDCODE: %w", err)
	}
	if !idcode.Valid(raw) {
		logger.Warn("no device answered", "idcode", fmt.Sprintf("0x%08X", raw))
	}

	info := deviceinfo.Lookup(raw)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "IDCODE:       0x%08X\n", raw)
	fmt.Fprintf(out, "Device:       %s\n", dev)
	fmt.Fprintf(out, "Manufacturer: %s (bank %d, id 0x%02X)\n",
		info.Manufacturer.Name, info.Manufacturer.Bank(), info.Manufacturer.ID())
	fmt.Fprintf(out, "Part:         0x%04X (version %d)\n", info.IDCode.PartNumber, info.IDCode.Version)
	if info.Known() {
		fmt.Fprintf(out, "Name:         %s (%s)\n", info.Name, info.Family)
		fmt.Fprintf(out, "IR length:    %d\n", info.IRLength)
		if info.IRLength != ctl.Family().IRLength() {
			logger.Warn("IR length differs from the configured family",
				"family", ctl.Family(), "device", info.IRLength)
		}
	}
	return nil
}
