package distribution

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
)

func TestGetDeviceMixPresets(t *testing.T) {
	for _, name := range MixNames() {
		mix, err := GetDeviceMix(name)
		if err != nil {
			t.Fatalf("GetDeviceMix(%s): %v", name, err)
		}
		if mix.Total() <= 0 {
			t.Fatalf("preset %s has no devices", name)
		}
		if err := mix.Validate(); err != nil {
			t.Fatalf("preset %s invalid: %v", name, err)
		}
	}
}

func TestGetDeviceMixUnknown(t *testing.T) {
	_, err := GetDeviceMix("no_such_mix")
	if !errors.Is(err, ErrUnknownMix) {
		t.Fatalf("expected ErrUnknownMix, got %v", err)
	}
}

func TestBuildPortAssignmentsSlices(t *testing.T) {
	mix := Mix{
		device.CableModem: 100,
		device.Switch:     10,
		device.Router:     5,
	}
	pa, err := BuildPortAssignments(mix, PortRange{Start: 30000, End: 30999})
	if err != nil {
		t.Fatalf("BuildPortAssignments: %v", err)
	}
	if err := pa.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cm, ok := pa.Range(device.CableModem)
	if !ok || cm.Start != 30000 || cm.End != 30099 {
		t.Fatalf("cable_modem slice = %+v, want 30000-30099", cm)
	}
	// switch comes after cable_modem and mta (absent) in type order
	sw, ok := pa.Range(device.Switch)
	if !ok || sw.Start != 30100 || sw.End != 30109 {
		t.Fatalf("switch slice = %+v, want 30100-30109", sw)
	}
	rt, ok := pa.Range(device.Router)
	if !ok || rt.Start != 30110 || rt.End != 30114 {
		t.Fatalf("router slice = %+v, want 30110-30114", rt)
	}
	if _, ok := pa.Range(device.Server); ok {
		t.Fatal("server should have no slice for a zero count")
	}
}

func TestBuildPortAssignmentsInsufficient(t *testing.T) {
	mix := Mix{device.CableModem: 50}
	_, err := BuildPortAssignments(mix, PortRange{Start: 30000, End: 30010})
	if !errors.Is(err, ErrInsufficientPorts) {
		t.Fatalf("expected ErrInsufficientPorts, got %v", err)
	}
}

func TestBuildPortAssignmentsRejectsBadMix(t *testing.T) {
	if _, err := BuildPortAssignments(Mix{device.CableModem: -1}, PortRange{Start: 1, End: 100}); err == nil {
		t.Fatal("expected error for negative count")
	}
	if _, err := BuildPortAssignments(Mix{device.Type("fridge"): 1}, PortRange{Start: 1, End: 100}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestDetermineDeviceTypeConsistency(t *testing.T) {
	mix := Mix{
		device.CableModem: 20,
		device.MTA:        5,
		device.Switch:     8,
	}
	pa, err := BuildPortAssignments(mix, PortRange{Start: 20000, End: 20100})
	if err != nil {
		t.Fatalf("BuildPortAssignments: %v", err)
	}

	for _, dt := range []device.Type{device.CableModem, device.MTA, device.Switch} {
		for _, p := range pa.Ports(dt) {
			got, ok := pa.DetermineDeviceType(p)
			if !ok || got != dt {
				t.Fatalf("DetermineDeviceType(%d) = %v/%v, want %s", p, got, ok, dt)
			}
		}
	}

	if _, ok := pa.DetermineDeviceType(20099); ok {
		t.Fatal("port beyond assigned slices should be unassigned")
	}
	if _, ok := pa.DetermineDeviceType(19999); ok {
		t.Fatal("port below range should be unassigned")
	}
}

func TestCalculateDensityStats(t *testing.T) {
	mix := Mix{
		device.CableModem: 200,
		device.Switch:     10,
		device.Server:     30,
	}
	pa, err := BuildPortAssignments(mix, PortRange{Start: 25000, End: 25999})
	if err != nil {
		t.Fatalf("BuildPortAssignments: %v", err)
	}

	stats := pa.CalculateDensityStats()
	if stats.TotalDevices != 240 {
		t.Fatalf("TotalDevices = %d, want 240", stats.TotalDevices)
	}
	if stats.LargestType != device.CableModem || stats.LargestCount != 200 {
		t.Fatalf("largest group = %s/%d, want cable_modem/200", stats.LargestType, stats.LargestCount)
	}
	if stats.PerTypeCounts[device.Server] != 30 {
		t.Fatalf("server count = %d, want 30", stats.PerTypeCounts[device.Server])
	}
}

func TestLoadMixFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.yaml")
	data := `devices:
  cable_modem: 40
  switch: 4
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	mix, err := LoadMixFile(path)
	if err != nil {
		t.Fatalf("LoadMixFile: %v", err)
	}
	if mix[device.CableModem] != 40 || mix[device.Switch] != 4 {
		t.Fatalf("unexpected mix: %+v", mix)
	}
}

func TestLoadMixFileRejectsUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.yaml")
	data := `devices:
  mainframe: 1
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	if _, err := LoadMixFile(path); err == nil {
		t.Fatal("expected error for unknown device type")
	}
}
