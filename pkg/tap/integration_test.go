package tap_test

import (
	"testing"

	"github.com/OpenTraceLab/bsio/pkg/bitpack"
	"github.com/OpenTraceLab/bsio/pkg/jtag"
	"github.com/OpenTraceLab/bsio/pkg/tap"
)

func TestRoutesDriveSimulatedTAP(t *testing.T) {
	sim := jtag.NewSimTransport(jtag.DefaultSimDevice())
	cur := tap.StateTestLogicReset

	// Visit every target from every state by chaining routes.
	for from := tap.State(0); from < tap.NumStates; from++ {
		for to := tap.State(0); to < tap.NumStates; to++ {
			for _, hop := range []tap.State{from, to} {
				seq, err := tap.Route(cur, hop)
				if err != nil {
					t.Fatalf("Route(%s, %s): %v", cur, hop, err)
				}
				if len(seq.TMS) > 0 {
					if err := sim.SendTMSBits(bitpack.Pack(seq.TMS), len(seq.TMS), false, nil); err != nil {
						t.Fatalf("SendTMSBits: %v", err)
					}
				}
				if sim.State() != hop {
					t.Fatalf("simulated TAP in %s after routing %s -> %s", sim.State(), cur, hop)
				}
				cur = hop
			}
		}
	}
}

func TestResetSequenceDrivesSimulatedTAP(t *testing.T) {
	sim := jtag.NewSimTransport(jtag.DefaultSimDevice())
	if err := sim.SendTMSBits([]byte{0x02}, 4, false, nil); err != nil {
		t.Fatalf("SendTMSBits: %v", err)
	}

	m := tap.NewStateMachine()
	seq := m.Reset(0)
	if err := sim.SendTMSBits(bitpack.Pack(seq.TMS), len(seq.TMS), false, nil); err != nil {
		t.Fatalf("SendTMSBits: %v", err)
	}
	if sim.State() != tap.StateTestLogicReset {
		t.Fatalf("state = %s, want TestLogicReset", sim.State())
	}
}
