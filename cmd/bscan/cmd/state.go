package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/bsio/pkg/tap"
)

var stateFrom string

var stateCmd = &cobra.Command{
	Use:   "state <target>",
	Short: "Walk the TAP to a state",
	Long: `Reset the TAP, optionally move to --from, then route to the target state and
print the path and TMS pattern that was clocked.

Examples:
  bscan state shift-dr
  bscan state pause-ir --from exit1-dr`,
	Args: cobra.ExactArgs(1),
	RunE: runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.Flags().StringVar(&stateFrom, "from", "", "state to start from (default Test-Logic-Reset)")
}

func runState(cmd *cobra.Command, args []string) error {
	target, err := tap.ParseState(args[0])
	if err != nil {
		return err
	}

	ctl, err := openSession()
	if err != nil {
		return err
	}
	defer closeSession(ctl)

	if stateFrom != "" {
		from, err := tap.ParseState(stateFrom)
		if err != nil {
			return err
		}
		if err := ctl.GotoState(from); err != nil {
			return err
		}
	}

	seq, err := tap.Route(ctl.State(), target)
	if err != nil {
		return err
	}
	if target == tap.StateTestLogicReset {
		// resets always clock the full count, even from Test-Logic-Reset
		seq = tap.Sequence{States: []tap.State{ctl.State()}}
		for cur := ctl.State(); len(seq.TMS) < ctl.ResetClocks(); {
			cur = tap.NextState(cur, true)
			seq.TMS = append(seq.TMS, true)
			seq.States = append(seq.States, cur)
		}
	}
	if err := ctl.GotoState(target); err != nil {
		return err
	}

	names := make([]string, len(seq.States))
	for i, s := range seq.States {
		names[i] = s.String()
	}
	var tms strings.Builder
	for _, b := range seq.TMS {
		if b {
			tms.WriteByte('1')
		} else {
			tms.WriteByte('0')
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Path: %s\n", strings.Join(names, " -> "))
	fmt.Fprintf(out, "TMS:  %s (%d clocks)\n", tms.String(), len(seq.TMS))
	fmt.Fprintf(out, "State: %s\n", ctl.State())
	return nil
}
