package deviceinfo

import (
	"go/build"
	"os"
	"strings"
	"testing"
)

func TestLookupKnownDevices(t *testing.T) {
	tests := []struct {
		raw    uint32
		name   string
		irLen  int
		vendor string
	}{
		{0x01414093, "XC3S200", 6, "Xilinx"},
		{0x11428093, "XC3S1000", 6, "Xilinx"}, // revision does not matter
		{0x02A96093, "XC5VLX50T", 10, "Xilinx"},
		{0x4BA00477, "JTAG-DP", 4, "ARM"},
	}
	for _, tt := range tests {
		info := Lookup(tt.raw)
		if !info.Known() || info.Name != tt.name || info.IRLength != tt.irLen || info.Manufacturer.Name != tt.vendor {
			t.Errorf("Lookup(%08X) = %+v", tt.raw, info)
		}
		if info.IDCode.Raw != tt.raw {
			t.Errorf("Lookup(%08X) raw = %08X", tt.raw, info.IDCode.Raw)
		}
	}
}

func TestLookupUnknownDevice(t *testing.T) {
	info := Lookup(0x0ABCD093)
	if info.Known() {
		t.Fatalf("unexpected entry %+v", info)
	}
	if info.Manufacturer.Name != "Xilinx" || info.Name != "Unknown device" {
		t.Fatalf("fallback = %+v", info)
	}
}

// Vendor tables register from init, so a file dropped by a GOOS/GOARCH name
// suffix silently loses its entries.
func TestVendorFilesBuildEverywhere(t *testing.T) {
	entries, err := os.ReadDir(".")
	if err != nil {
		t.Fatal(err)
	}
	for _, arch := range []string{"amd64", "arm64", "arm", "386"} {
		ctx := build.Default
		ctx.GOOS = "linux"
		ctx.GOARCH = arch
		for _, e := range entries {
			name := e.Name()
			if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
				continue
			}
			ok, err := ctx.MatchFile(".", name)
			if err != nil {
				t.Fatalf("MatchFile(%s): %v", name, err)
			}
			if !ok {
				t.Errorf("%s is excluded on linux/%s", name, arch)
			}
		}
	}
}
