package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/bsio/internal/config"
)

var (
	// Global flags
	verbose bool

	// Resolved in PersistentPreRunE
	cfg    *config.Config
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bscan",
	Short: "JTAG boundary-scan controller",
	Long: `Drive the TAP of a Spartan-class FPGA through a CMSIS-DAP probe or the
built-in simulator: walk the state machine, load instructions, read the IDCODE
and shift data through USER registers.

Examples:
  bscan interfaces                                   # List probes
  bscan idcode                                       # Read IDCODE from the simulator
  bscan idcode --adapter cmsis-dap --speed 4000000   # Read IDCODE over CMSIS-DAP
  bscan shift u32 0xCAFEF00D --instruction user1     # Shift through USER1
  bscan run bringup.bs                               # Execute a scan script`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (log level debug)")
	config.RegisterFlags(rootCmd.PersistentFlags())
}

func loadConfig(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	c, used, err := config.Load(config.LoadOptions{ConfigFile: path, Flags: cmd.Flags()})
	if err != nil {
		return err
	}

	level, _ := c.LogLevel()
	if verbose {
		level = log.DebugLevel
	}
	logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix: "bscan",
		Level:  level,
	})
	if used != "" {
		logger.Debug("config loaded", "file", used)
	}
	cfg = c
	return nil
}
