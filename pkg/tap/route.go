package tap

import "fmt"

// fork picks the TMS bit to clock out of a state given the final target.
// States with a single useful exit ignore the target.
type fork func(target State) bool

func always(tms bool) fork {
	return func(State) bool { return tms }
}

func unless(targets ...State) fork {
	return func(target State) bool {
		for _, t := range targets {
			if t == target {
				return false
			}
		}
		return true
	}
}

// routes mirrors the transition table: for each state, the TMS value that
// moves one edge closer to the target. Exit1 only turns into Pause when the
// target is on the pause loop, and Exit2 only re-enters Shift when the target
// is Shift, Exit1 or Pause; every other target leaves through Update.
var routes = [NumStates]fork{
	StateTestLogicReset: always(false),
	StateRunTestIdle:    always(true),
	StateSelectDRScan:   State.IsIR,
	StateCaptureDR:      unless(StateShiftDR),
	StateShiftDR:        always(true),
	StateExit1DR:        unless(StatePauseDR, StateExit2DR),
	StatePauseDR:        always(true),
	StateExit2DR:        unless(StateShiftDR, StateExit1DR, StatePauseDR),
	StateUpdateDR:       unless(StateRunTestIdle),
	StateSelectIRScan:   always(false),
	StateCaptureIR:      unless(StateShiftIR),
	StateShiftIR:        always(true),
	StateExit1IR:        unless(StatePauseIR, StateExit2IR),
	StatePauseIR:        always(true),
	StateExit2IR:        unless(StateShiftIR, StateExit1IR, StatePauseIR),
	StateUpdateIR:       unless(StateRunTestIdle),
}

// maxRouteLen bounds Route; no route in the table exceeds seven edges.
const maxRouteLen = 2 * NumStates

// Step returns the single TMS bit to clock from current toward target and the
// state it leads to. Test-Logic-Reset is always approached with TMS=1, which
// reaches it from anywhere within MinResetClocks edges. The result is only
// meaningful when current != target.
func Step(current, target State) (tms bool, next State) {
	if target == StateTestLogicReset {
		tms = true
	} else {
		tms = routes[current](target)
	}
	return tms, NextState(current, tms)
}

// Route unrolls Step from one state to another. It returns an empty sequence
// when from == to.
func Route(from, to State) (Sequence, error) {
	if !from.Valid() {
		return Sequence{}, fmt.Errorf("tap: invalid start state %d", from)
	}
	if !to.Valid() {
		return Sequence{}, fmt.Errorf("tap: invalid target state %d", to)
	}

	seq := Sequence{States: []State{from}}
	for cur := from; cur != to; {
		if len(seq.TMS) == maxRouteLen {
			return Sequence{}, fmt.Errorf("tap: no route from %s to %s", from, to)
		}
		var tms bool
		tms, cur = Step(cur, to)
		seq.TMS = append(seq.TMS, tms)
		seq.States = append(seq.States, cur)
	}
	return seq, nil
}
