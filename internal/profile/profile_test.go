package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gosnmp/gosnmp"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/simulate"
)

func TestStoreGetAndNext(t *testing.T) {
	s := NewStore()
	s.Insert("1.3.6.1.2.1.1.1.0", simulate.Datum{Type: gosnmp.OctetString, Value: "descr"})
	s.Insert("1.3.6.1.2.1.1.5.0", simulate.Datum{Type: gosnmp.OctetString, Value: "name"})
	s.Insert("1.3.6.1.2.1.2.2.1.10.2", simulate.Datum{Type: gosnmp.Counter32, Value: uint64(9)})
	s.Insert("1.3.6.1.2.1.2.2.1.10.10", simulate.Datum{Type: gosnmp.Counter32, Value: uint64(10)})

	if d, ok := s.Get(".1.3.6.1.2.1.1.5.0"); !ok || d.Value != "name" {
		t.Fatalf("Get with leading dot failed: %+v %v", d, ok)
	}

	next, _, ok := s.Next("1.3.6.1.2.1.1.1.0")
	if !ok || next != "1.3.6.1.2.1.1.5.0" {
		t.Fatalf("Next = %q, want 1.3.6.1.2.1.1.5.0", next)
	}

	// numeric, not lexicographic: .10.2 sorts before .10.10
	next, _, ok = s.Next("1.3.6.1.2.1.2.2.1.10.2")
	if !ok || next != "1.3.6.1.2.1.2.2.1.10.10" {
		t.Fatalf("Next = %q, want 1.3.6.1.2.1.2.2.1.10.10", next)
	}

	if _, _, ok := s.Next("1.3.6.1.2.1.2.2.1.10.10"); ok {
		t.Fatal("Next past the last OID should report end of dataset")
	}
}

func TestStoreWalkOrder(t *testing.T) {
	s := NewStore()
	s.Insert("1.3.6.1.2.1.1.3.0", simulate.Datum{Type: gosnmp.TimeTicks, Value: uint64(0)})
	s.Insert("1.3.6.1.2.1.1.1.0", simulate.Datum{Type: gosnmp.OctetString, Value: "a"})
	s.Insert("1.3.6.1.2.1.2.1.0", simulate.Datum{Type: gosnmp.Integer, Value: 2})

	var seen []string
	s.Walk(func(oid string, _ simulate.Datum) bool {
		seen = append(seen, oid)
		return true
	})

	want := []string{"1.3.6.1.2.1.1.1.0", "1.3.6.1.2.1.1.3.0", "1.3.6.1.2.1.2.1.0"}
	if len(seen) != len(want) {
		t.Fatalf("walk visited %d OIDs, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("walk order[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestLoadSnmprec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "router.snmprec")
	data := `# comment line
1.3.6.1.2.1.1.1.0|octetstring|Test Router
1.3.6.1.2.1.1.3.0|timeticks|12345
1.3.6.1.2.1.2.1.0|integer|24
1.3.6.1.2.1.2.2.1.10.1|counter32|1000000
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}

	s := NewStore()
	n, err := LoadSnmprec(s, path)
	if err != nil {
		t.Fatalf("LoadSnmprec: %v", err)
	}
	if n != 4 || s.Len() != 4 {
		t.Fatalf("loaded %d entries, store has %d, want 4", n, s.Len())
	}

	d, ok := s.Get("1.3.6.1.2.1.2.2.1.10.1")
	if !ok || d.Type != gosnmp.Counter32 || d.Value.(uint64) != 1000000 {
		t.Fatalf("counter entry wrong: %+v %v", d, ok)
	}
	d, _ = s.Get("1.3.6.1.2.1.2.1.0")
	if d.Type != gosnmp.Integer || d.Value.(int) != 24 {
		t.Fatalf("integer entry wrong: %+v", d)
	}
}

func TestLoadSnmprecRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.snmprec")
	if err := os.WriteFile(path, []byte("1.3.6.1|integer\n"), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	s := NewStore()
	if _, err := LoadSnmprec(s, path); err == nil {
		t.Fatal("expected error for malformed line")
	}
}

func TestBinderLongestPrefix(t *testing.T) {
	b, err := NewBinder([]bindingSpec{
		{Prefix: "1.3.6.1.2.1.2", Behavior: "error_counter", RateMin: 0, RateMax: 1},
		{Prefix: "1.3.6.1.2.1.2.2.1.10", Behavior: "traffic_counter", RateMin: 1000, RateMax: 2000},
	})
	if err != nil {
		t.Fatalf("NewBinder: %v", err)
	}

	got := b.Lookup("1.3.6.1.2.1.2.2.1.10.1")
	if _, ok := got.(simulate.TrafficCounter); !ok {
		t.Fatalf("longest prefix should win, got %T", got)
	}
	got = b.Lookup("1.3.6.1.2.1.2.2.1.14.1")
	if _, ok := got.(simulate.ErrorCounter); !ok {
		t.Fatalf("shorter prefix should still match, got %T", got)
	}
	if got := b.Lookup("1.3.6.1.2.1.1.1.0"); got != nil {
		t.Fatalf("unbound OID should have nil behavior, got %T", got)
	}
}

func TestLoadBinderFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "behaviors.yaml")
	data := `bindings:
  - prefix: "1.3.6.1.2.1.2.2.1.10"
    behavior: traffic_counter
    rate_min: 1000
    rate_max: 125000000
    time_of_day_variation: true
    burst_probability: 0.1
  - prefix: "1.3.6.1.2.1.1.3.0"
    behavior: uptime_counter
    increment_rate: 100
    reset_probability: 0.0001
  - prefix: "1.3.6.1.2.1.99"
    behavior: quantum_flux
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	b, err := LoadBinder(path)
	if err != nil {
		t.Fatalf("LoadBinder: %v", err)
	}

	tc, ok := b.Lookup("1.3.6.1.2.1.2.2.1.10.3").(simulate.TrafficCounter)
	if !ok {
		t.Fatalf("expected TrafficCounter binding")
	}
	if tc.RateRange.Max != 125000000 || !tc.TimeOfDayVariation || tc.BurstProbability != 0.1 {
		t.Fatalf("traffic binding params wrong: %+v", tc)
	}

	uc, ok := b.Lookup("1.3.6.1.2.1.1.3.0").(simulate.UptimeCounter)
	if !ok || uc.IncrementRate != 100 {
		t.Fatalf("uptime binding wrong: %+v (%v)", uc, ok)
	}

	// unknown behavior names degrade to static instead of failing
	if _, ok := b.Lookup("1.3.6.1.2.1.99.1").(simulate.StaticValue); !ok {
		t.Fatal("unknown behavior should bind as static")
	}
}

func TestGenerateSetPerType(t *testing.T) {
	for _, dt := range device.AllTypes {
		set, err := GenerateSet(dt)
		if err != nil {
			t.Fatalf("GenerateSet(%s): %v", dt, err)
		}
		chars, _ := device.GetCharacteristics(dt)

		if _, ok := set.Store.Get(oidSysUpTime); !ok {
			t.Fatalf("%s: missing sysUpTime", dt)
		}
		d, ok := set.Store.Get(oidIfNumber)
		if !ok || d.Value.(int) != chars.TypicalInterfaces {
			t.Fatalf("%s: ifNumber = %+v, want %d", dt, d, chars.TypicalInterfaces)
		}

		_, hasSNR := set.Store.Get(oidDocsisSNR)
		if hasSNR != chars.SignalMonitoring {
			t.Fatalf("%s: snr presence %v, signal monitoring %v", dt, hasSNR, chars.SignalMonitoring)
		}

		if _, ok := set.Binder.Lookup(oidSysUpTime).(simulate.UptimeCounter); !ok {
			t.Fatalf("%s: sysUpTime should bind to uptime_counter", dt)
		}
		if _, ok := set.Binder.Lookup(oidIfInOctets + ".1").(simulate.TrafficCounter); !ok {
			t.Fatalf("%s: ifInOctets should bind to traffic_counter", dt)
		}
	}
}

func TestLibrary(t *testing.T) {
	lib, err := NewLibrary()
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	set, err := lib.Set(device.CMTS)
	if err != nil || set.Store.Len() == 0 {
		t.Fatalf("cmts set missing or empty: %v", err)
	}
	if _, err := lib.Set(device.Type("abacus")); err == nil {
		t.Fatal("expected error for unknown type")
	}

	custom := &Set{Store: NewStore(), Binder: nil}
	lib.Override(device.Router, custom)
	got, err := lib.Set(device.Router)
	if err != nil || got != custom {
		t.Fatalf("override not applied: %v %v", got, err)
	}
}
