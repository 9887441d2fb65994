package usblink

import (
	"context"
	"testing"
	"time"

	"github.com/OpenTraceLab/bsio/pkg/cmsisdap"
)

var _ cmsisdap.Link = (*Link)(nil)

func TestClassify(t *testing.T) {
	info, ok := Classify(VendorIDRaspberryPi, ProductIDCMSISDAP)
	if !ok || info.Kind != InterfaceKindCMSISDAP {
		t.Fatalf("Classify(debug probe) = %+v, %v", info, ok)
	}
	if _, ok := Classify(0x1234, 0x5678); ok {
		t.Fatalf("unknown device classified")
	}
}

func TestInterfaceLabel(t *testing.T) {
	tests := []struct {
		info InterfaceInfo
		want string
	}{
		{InterfaceInfo{Description: "DAPLink CMSIS-DAP"}, "DAPLink CMSIS-DAP"},
		{InterfaceInfo{Kind: InterfaceKindCMSISDAP, VendorID: 0x0d28, ProductID: 0x0204}, "cmsis-dap (0D28:0204)"},
		{InterfaceInfo{VendorID: 1, ProductID: 2}, "Interface 0001:0002"},
	}
	for _, tt := range tests {
		if got := tt.info.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
}

func TestDiscoverInterfacesIncludesSimulator(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping USB enumeration in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	infos, err := DiscoverInterfaces(ctx)
	if err != nil {
		t.Skipf("USB enumeration unavailable: %v", err)
	}
	if len(infos) == 0 || infos[len(infos)-1].Kind != InterfaceKindSim {
		t.Fatalf("simulator entry missing: %+v", infos)
	}
	for _, info := range infos {
		t.Logf("  %s [%s] serial=%q", info.Label(), info.Kind, info.Serial)
	}
}

// Integration test - only runs with real hardware
func TestLinkIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	link, err := Open(VendorIDRaspberryPi, ProductIDCMSISDAP, time.Second)
	if err != nil {
		t.Skipf("No CMSIS-DAP hardware found: %v", err)
	}
	defer link.Close()

	if link.PacketSize() < 64 {
		t.Errorf("Packet size too small: %d", link.PacketSize())
	}

	resp, err := link.WriteRead([]byte{cmsisdap.CmdInfo, cmsisdap.InfoVendorName})
	if err != nil {
		t.Fatalf("WriteRead: %v", err)
	}
	if len(resp) < 2 || resp[0] != cmsisdap.CmdInfo {
		t.Fatalf("unexpected response % X", resp)
	}
}
