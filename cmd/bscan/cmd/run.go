package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/bsio/pkg/script"
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Execute a scan script",
	Long: `Parse and execute a scan script against one session. Each statement prints
its source position, the TAP state it left behind and any captured TDO value.
Execution stops at the first failing statement.

Script syntax (one statement per line or separated by ';', '#' comments):
  reset
  state <name>                 e.g. shift-dr, pause-ir, idle
  instruction <name|opcode>    e.g. user1, idcode, 0x02
  idcode
  shift <kind> <value>... [exit]
        kind: bit binary byte bytes u16 i16 u32 i32`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runScript(cmd *cobra.Command, args []string) error {
	p, err := script.NewParser()
	if err != nil {
		return err
	}
	sc, err := p.ParseFile(args[0])
	if err != nil {
		return err
	}
	logger.Debug("script parsed", "file", args[0], "statements", len(sc.Statements))

	ctl, err := openSession()
	if err != nil {
		return err
	}
	defer closeSession(ctl)

	results, err := script.Run(ctl, sc)
	for _, r := range results {
		fmt.Fprintln(cmd.OutOrStdout(), r)
	}
	return err
}
