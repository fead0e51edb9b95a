package device

import (
	"math/rand"
	"testing"
	"time"
)

func TestCharacteristicRelations(t *testing.T) {
	get := func(dt Type) Characteristics {
		c, err := GetCharacteristics(dt)
		if err != nil {
			t.Fatalf("GetCharacteristics(%s): %v", dt, err)
		}
		return c
	}

	cm := get(CableModem)
	sw := get(Switch)
	cmts := get(CMTS)
	rt := get(Router)

	if sw.TypicalInterfaces <= cm.TypicalInterfaces {
		t.Fatalf("switch interfaces (%d) should exceed cable modem (%d)",
			sw.TypicalInterfaces, cm.TypicalInterfaces)
	}
	if cmts.TypicalInterfaces <= cm.TypicalInterfaces {
		t.Fatalf("cmts interfaces (%d) should exceed cable modem (%d)",
			cmts.TypicalInterfaces, cm.TypicalInterfaces)
	}
	if cmts.ExpectedUptimeDays < sw.ExpectedUptimeDays || sw.ExpectedUptimeDays < cm.ExpectedUptimeDays {
		t.Fatalf("uptime ordering violated: cmts=%d switch=%d cable_modem=%d",
			cmts.ExpectedUptimeDays, sw.ExpectedUptimeDays, cm.ExpectedUptimeDays)
	}
	if !cm.SignalMonitoring || !cmts.SignalMonitoring {
		t.Fatal("cable modem and cmts should have signal monitoring")
	}
	if sw.SignalMonitoring || rt.SignalMonitoring {
		t.Fatal("switch and router should not have signal monitoring")
	}
}

func TestGetCharacteristicsUnknown(t *testing.T) {
	if _, err := GetCharacteristics(Type("toaster")); err == nil {
		t.Fatal("expected error for unknown device type")
	}
}

func TestNewStateBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	now := time.Now()

	for _, dt := range AllTypes {
		s := NewState(30000, dt, rng, now)
		if s.DeviceType != dt || s.Port != 30000 {
			t.Fatalf("state identity wrong: %+v", s)
		}
		if s.InterfaceUtilization < 0 || s.InterfaceUtilization > 1 {
			t.Fatalf("%s: interface utilization out of range: %v", dt, s.InterfaceUtilization)
		}
		if s.SignalQuality < 0 || s.SignalQuality > 1 {
			t.Fatalf("%s: signal quality out of range: %v", dt, s.SignalQuality)
		}
		if s.HealthScore < 0 || s.HealthScore > 1 {
			t.Fatalf("%s: health score out of range: %v", dt, s.HealthScore)
		}
		if s.UptimeSeconds != 0 {
			t.Fatalf("%s: fresh state should have zero uptime", dt)
		}
		if s.CounterAccumulators == nil {
			t.Fatalf("%s: counter accumulators not initialized", dt)
		}
	}
}

func TestStateAdvanceAndTouch(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	t0 := time.Unix(1000, 0)
	s := NewState(20000, Switch, rng, t0)

	s.Advance(90 * time.Second)
	if s.UptimeSeconds != 90 {
		t.Fatalf("uptime = %v, want 90", s.UptimeSeconds)
	}
	s.Advance(-time.Second)
	if s.UptimeSeconds != 90 {
		t.Fatalf("negative delta should not move uptime backward, got %v", s.UptimeSeconds)
	}

	t1 := t0.Add(time.Minute)
	s.Touch(t1)
	if !s.LastActivity.Equal(t1) {
		t.Fatalf("LastActivity = %v, want %v", s.LastActivity, t1)
	}
}
