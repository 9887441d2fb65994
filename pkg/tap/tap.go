package tap

import (
	"fmt"
	"strings"
)

// State represents one of the 16 defined IEEE 1149.1 TAP controller states.
type State uint8

const (
	StateTestLogicReset State = iota
	StateRunTestIdle
	StateSelectDRScan
	StateCaptureDR
	StateShiftDR
	StateExit1DR
	StatePauseDR
	StateExit2DR
	StateUpdateDR
	StateSelectIRScan
	StateCaptureIR
	StateShiftIR
	StateExit1IR
	StatePauseIR
	StateExit2IR
	StateUpdateIR
)

// NumStates is the number of TAP controller states.
const NumStates = 16

// MinResetClocks is the number of TMS=1 clocks that reaches Test-Logic-Reset
// from any state.
const MinResetClocks = 5

var stateNames = [NumStates]string{
	StateTestLogicReset: "TestLogicReset",
	StateRunTestIdle:    "RunTestIdle",
	StateSelectDRScan:   "SelectDRScan",
	StateCaptureDR:      "CaptureDR",
	StateShiftDR:        "ShiftDR",
	StateExit1DR:        "Exit1DR",
	StatePauseDR:        "PauseDR",
	StateExit2DR:        "Exit2DR",
	StateUpdateDR:       "UpdateDR",
	StateSelectIRScan:   "SelectIRScan",
	StateCaptureIR:      "CaptureIR",
	StateShiftIR:        "ShiftIR",
	StateExit1IR:        "Exit1IR",
	StatePauseIR:        "PauseIR",
	StateExit2IR:        "Exit2IR",
	StateUpdateIR:       "UpdateIR",
}

// aliases accepted by ParseState besides the canonical names, keyed by the
// normalized spelling (upper case, separators removed).
var aliases = map[string]State{
	"RESET":     StateTestLogicReset,
	"TLR":       StateTestLogicReset,
	"IDLE":      StateRunTestIdle,
	"RTI":       StateRunTestIdle,
	"RUNIDLE":   StateRunTestIdle,
	"DRSELECT":  StateSelectDRScan,
	"DRCAPTURE": StateCaptureDR,
	"DRSHIFT":   StateShiftDR,
	"DREXIT1":   StateExit1DR,
	"DRPAUSE":   StatePauseDR,
	"DREXIT2":   StateExit2DR,
	"DRUPDATE":  StateUpdateDR,
	"IRSELECT":  StateSelectIRScan,
	"IRCAPTURE": StateCaptureIR,
	"IRSHIFT":   StateShiftIR,
	"IREXIT1":   StateExit1IR,
	"IRPAUSE":   StatePauseIR,
	"IREXIT2":   StateExit2IR,
	"IRUPDATE":  StateUpdateIR,
}

func (s State) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// Valid reports whether s is one of the 16 TAP states.
func (s State) Valid() bool {
	return s < NumStates
}

// IsShift reports whether s is Shift-DR or Shift-IR.
func (s State) IsShift() bool {
	return s == StateShiftDR || s == StateShiftIR
}

// IsIR reports whether s lies on the instruction-register column.
func (s State) IsIR() bool {
	return s >= StateSelectIRScan && s <= StateUpdateIR
}

// ParseState accepts the canonical state names ("ShiftDR") as well as the
// common SVF and vendor spellings ("DRSHIFT", "dr_shift", "IDLE", "RESET").
func ParseState(name string) (State, error) {
	key := strings.ToUpper(strings.NewReplacer("_", "", "-", "", " ", "", "/", "").Replace(name))
	for i, n := range stateNames {
		if strings.ToUpper(n) == key {
			return State(i), nil
		}
	}
	if s, ok := aliases[key]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("tap: unknown state %q", name)
}

// Sequence captures the TMS drive pattern and the sequence of states that result
// from applying that pattern to the TAP controller.
type Sequence struct {
	TMS    []bool
	States []State
}

type stateTransitions struct {
	onZero State
	onOne  State
}

var transitions = [NumStates]stateTransitions{
	StateTestLogicReset: {onZero: StateRunTestIdle, onOne: StateTestLogicReset},
	StateRunTestIdle:    {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
	StateSelectDRScan:   {onZero: StateCaptureDR, onOne: StateSelectIRScan},
	StateCaptureDR:      {onZero: StateShiftDR, onOne: StateExit1DR},
	StateShiftDR:        {onZero: StateShiftDR, onOne: StateExit1DR},
	StateExit1DR:        {onZero: StatePauseDR, onOne: StateUpdateDR},
	StatePauseDR:        {onZero: StatePauseDR, onOne: StateExit2DR},
	StateExit2DR:        {onZero: StateShiftDR, onOne: StateUpdateDR},
	StateUpdateDR:       {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
	StateSelectIRScan:   {onZero: StateCaptureIR, onOne: StateTestLogicReset},
	StateCaptureIR:      {onZero: StateShiftIR, onOne: StateExit1IR},
	StateShiftIR:        {onZero: StateShiftIR, onOne: StateExit1IR},
	StateExit1IR:        {onZero: StatePauseIR, onOne: StateUpdateIR},
	StatePauseIR:        {onZero: StatePauseIR, onOne: StateExit2IR},
	StateExit2IR:        {onZero: StateShiftIR, onOne: StateUpdateIR},
	StateUpdateIR:       {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
}

// NextState returns the next TAP state after clocking TCK with the provided TMS
// value. It panics if an invalid state is supplied, which should never happen
// when interacting through the exported API.
func NextState(current State, tms bool) State {
	if !current.Valid() {
		panic(fmt.Sprintf("tap: unhandled state %d", current))
	}
	row := transitions[current]
	if tms {
		return row.onOne
	}
	return row.onZero
}

// StateMachine tracks the TAP controller state locally. It does not perform any
// I/O; the simulator clocks it in lockstep with its shift registers.
type StateMachine struct {
	state State
}

// NewStateMachine creates a TAP state machine initialized to Test-Logic-Reset.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateTestLogicReset}
}

// State reports the current TAP state tracked by the machine.
func (m *StateMachine) State() State {
	return m.state
}

// Clock advances the machine one TCK cycle with the provided TMS bit and
// returns the new state.
func (m *StateMachine) Clock(tms bool) State {
	next := NextState(m.state, tms)
	m.state = next
	return next
}

// Reset clocks TMS=1 the given number of times, raised to MinResetClocks if
// smaller, and returns the resulting sequence.
func (m *StateMachine) Reset(clocks int) Sequence {
	if clocks < MinResetClocks {
		clocks = MinResetClocks
	}
	seq := Sequence{
		TMS:    make([]bool, clocks),
		States: make([]State, clocks+1),
	}
	seq.States[0] = m.state
	for i := 0; i < clocks; i++ {
		seq.TMS[i] = true
		seq.States[i+1] = m.Clock(true)
	}
	return seq
}
