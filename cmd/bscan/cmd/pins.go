package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/bsio/pkg/jtag"
)

var (
	pinsSet bool
	pinsTCK bool
	pinsTMS bool
	pinsTDI bool
)

var pinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "Read or drive the JTAG pins directly",
	Long: `Print the current TCK, TMS, TDI and TDO levels. With --set, drive TCK, TMS and
TDI first. A rising TCK edge clocks the TAP, so the controller's view of the
state is not updated by this command.

Examples:
  bscan pins
  bscan pins --set --tms --tck`,
	Args: cobra.NoArgs,
	RunE: runPins,
}

func init() {
	rootCmd.AddCommand(pinsCmd)
	pinsCmd.Flags().BoolVar(&pinsSet, "set", false, "drive the pins before reading them")
	pinsCmd.Flags().BoolVar(&pinsTCK, "tck", false, "TCK level for --set")
	pinsCmd.Flags().BoolVar(&pinsTMS, "tms", false, "TMS level for --set")
	pinsCmd.Flags().BoolVar(&pinsTDI, "tdi", false, "TDI level for --set")
}

func runPins(cmd *cobra.Command, args []string) error {
	ctl, err := openSession()
	if err != nil {
		return err
	}
	defer closeSession(ctl)

	t := ctl.Transport()
	if pinsSet {
		p := jtag.Pins{TCK: pinsTCK, TMS: pinsTMS, TDI: pinsTDI}
		if err := t.SetPins(p); err != nil {
			return fmt.Errorf("set pins: %w", err)
		}
		logger.Debug("pins driven", "pins", p)
	}
	pins, err := t.GetPins()
	if err != nil {
		return fmt.Errorf("get pins: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pins: %s\n", pins)
	return nil
}
