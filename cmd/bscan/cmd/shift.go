package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/bsio/pkg/script"
)

var (
	shiftInstruction string
	shiftIR          bool
)

var shiftCmd = &cobra.Command{
	Use:   "shift <bit|binary|byte|bytes|u16|i16|u32|i32> <value>...",
	Short: "Shift a value through a data or instruction register",
	Long: `Load --instruction, move to Shift-DR, shift the value with the exit bit set and
return to Run-Test/Idle, printing what came back on TDO. With --ir the value is
shifted through the instruction register instead.

Examples:
  bscan shift u32 0xCAFEF00D --instruction user1
  bscan shift bytes 0x01 0x02 0x03 --instruction user2
  bscan shift binary 110000 --ir`,
	Args: cobra.MinimumNArgs(2),
	RunE: runShift,
}

func init() {
	rootCmd.AddCommand(shiftCmd)
	shiftCmd.Flags().StringVarP(&shiftInstruction, "instruction", "i", "user1", "instruction selecting the data register")
	shiftCmd.Flags().BoolVar(&shiftIR, "ir", false, "shift through the instruction register")
}

func runShift(cmd *cobra.Command, args []string) error {
	sc := &script.Script{}
	if shiftIR {
		sc.Statements = append(sc.Statements, &script.Statement{State: "shift-ir"})
	} else {
		sc.Statements = append(sc.Statements,
			&script.Statement{Instruction: shiftInstruction},
			&script.Statement{State: "shift-dr"},
		)
	}
	sc.Statements = append(sc.Statements,
		&script.Statement{Shift: &script.ShiftStmt{Kind: args[0], Values: args[1:], Exit: true}},
		&script.Statement{State: "idle"},
	)

	ctl, err := openSession()
	if err != nil {
		return err
	}
	defer closeSession(ctl)

	results, err := script.Run(ctl, sc)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "TDO: %s\n", results[len(results)-2].Output)
	return nil
}
