package profile

import (
	"fmt"

	"github.com/gosnmp/gosnmp"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/simulate"
)

// Well-known OID prefixes used by the built-in datasets.
const (
	oidSysDescr    = "1.3.6.1.2.1.1.1.0"
	oidSysUpTime   = "1.3.6.1.2.1.1.3.0"
	oidSysName     = "1.3.6.1.2.1.1.5.0"
	oidIfNumber    = "1.3.6.1.2.1.2.1.0"
	oidIfDescr     = "1.3.6.1.2.1.2.2.1.2"
	oidIfOperState = "1.3.6.1.2.1.2.2.1.8"
	oidIfInOctets  = "1.3.6.1.2.1.2.2.1.10"
	oidIfInErrors  = "1.3.6.1.2.1.2.2.1.14"
	oidIfOutOctets = "1.3.6.1.2.1.2.2.1.16"
	oidCPULoad     = "1.3.6.1.4.1.9.2.1.58.0"
	oidChassisTemp = "1.3.6.1.4.1.9.9.13.1.3.1.3.1"
	oidDocsisSNR   = "1.3.6.1.2.1.10.127.1.1.4.1.5.3"
	oidDocsisPower = "1.3.6.1.2.1.10.127.1.1.1.1.6.3"
)

// Set pairs a static dataset with its behavior bindings; this is what the
// pool hands each new actor.
type Set struct {
	Store  *Store
	Binder *Binder
}

// Library resolves the profile set for a device type.
type Library struct {
	sets map[device.Type]*Set
}

// NewLibrary builds built-in profile sets for every device type.
func NewLibrary() (*Library, error) {
	lib := &Library{sets: make(map[device.Type]*Set)}
	for _, dt := range device.AllTypes {
		set, err := GenerateSet(dt)
		if err != nil {
			return nil, err
		}
		lib.sets[dt] = set
	}
	return lib, nil
}

// Override replaces the profile set for one device type, e.g. with a
// file-loaded dataset.
func (l *Library) Override(dt device.Type, set *Set) {
	l.sets[dt] = set
}

// Set returns the profile set for a device type.
func (l *Library) Set(dt device.Type) (*Set, error) {
	set, ok := l.sets[dt]
	if !ok {
		return nil, fmt.Errorf("no profile set for device type %q", dt)
	}
	return set, nil
}

// GenerateSet builds the built-in MIB-2 style dataset and bindings for a
// device type, sized by its characteristics.
func GenerateSet(dt device.Type) (*Set, error) {
	chars, err := device.GetCharacteristics(dt)
	if err != nil {
		return nil, err
	}

	s := NewStore()
	s.Insert(oidSysDescr, simulate.Datum{
		Type:  gosnmp.OctetString,
		Value: fmt.Sprintf("go-snmpfleet simulated %s", dt),
	})
	s.Insert(oidSysUpTime, simulate.Datum{Type: gosnmp.TimeTicks, Value: uint64(0)})
	s.Insert(oidSysName, simulate.Datum{Type: gosnmp.OctetString, Value: string(dt)})
	s.Insert(oidIfNumber, simulate.Datum{Type: gosnmp.Integer, Value: chars.TypicalInterfaces})
	s.Insert(oidCPULoad, simulate.Datum{Type: gosnmp.Gauge32, Value: uint64(20)})
	s.Insert(oidChassisTemp, simulate.Datum{Type: gosnmp.Gauge32, Value: uint64(chars.BaseTemperature)})

	for i := 1; i <= chars.TypicalInterfaces; i++ {
		s.Insert(fmt.Sprintf("%s.%d", oidIfDescr, i), simulate.Datum{
			Type:  gosnmp.OctetString,
			Value: fmt.Sprintf("eth%d", i-1),
		})
		s.Insert(fmt.Sprintf("%s.%d", oidIfOperState, i), simulate.Datum{Type: gosnmp.Integer, Value: 1})
		s.Insert(fmt.Sprintf("%s.%d", oidIfInOctets, i), simulate.Datum{Type: gosnmp.Counter32, Value: uint64(0)})
		s.Insert(fmt.Sprintf("%s.%d", oidIfOutOctets, i), simulate.Datum{Type: gosnmp.Counter32, Value: uint64(0)})
		s.Insert(fmt.Sprintf("%s.%d", oidIfInErrors, i), simulate.Datum{Type: gosnmp.Counter32, Value: uint64(0)})
	}

	if chars.SignalMonitoring {
		s.Insert(oidDocsisSNR, simulate.Datum{Type: gosnmp.Gauge32, Value: uint64(30)})
		s.Insert(oidDocsisPower, simulate.Datum{Type: gosnmp.Gauge32, Value: uint64(0)})
	}

	binder, err := defaultBinder(chars)
	if err != nil {
		return nil, err
	}
	return &Set{Store: s, Binder: binder}, nil
}

func defaultBinder(chars device.Characteristics) (*Binder, error) {
	maxRate := 100_000_000 * chars.TrafficWeight // scale vs a 100 Mbps modem
	specs := []bindingSpec{
		{
			Prefix:        oidSysUpTime,
			Behavior:      "uptime_counter",
			IncrementRate: 100,
			// roughly one observed restart per expected-uptime window
			ResetProbability: 1e-5,
		},
		{
			Prefix:             oidIfInOctets,
			Behavior:           "traffic_counter",
			RateMin:            1_000,
			RateMax:            maxRate,
			TimeOfDayVariation: true,
			BurstProbability:   0.05,
		},
		{
			Prefix:             oidIfOutOctets,
			Behavior:           "traffic_counter",
			RateMin:            1_000,
			RateMax:            maxRate / 4,
			TimeOfDayVariation: true,
			BurstProbability:   0.05,
		},
		{
			Prefix:                     oidIfInErrors,
			Behavior:                   "error_counter",
			RateMin:                    0,
			RateMax:                    0.5,
			ErrorBurstProbability:      0.02,
			CorrelationWithUtilization: true,
		},
		{
			Prefix:   oidIfOperState,
			Behavior: "status_enum",
		},
		{
			Prefix:        oidCPULoad,
			Behavior:      "utilization_gauge",
			RangeMin:      5,
			RangeMax:      95,
			Pattern:       string(simulate.PatternDailyVariation),
			PeakHourStart: 9,
			PeakHourEnd:   17,
		},
		{
			Prefix:          oidChassisTemp,
			Behavior:        "temperature_gauge",
			RangeMin:        20,
			RangeMax:        95,
			LoadCorrelation: true,
		},
	}

	if chars.SignalMonitoring {
		specs = append(specs,
			bindingSpec{
				Prefix:            oidDocsisSNR,
				Behavior:          "snr_gauge",
				RangeMin:          15,
				RangeMax:          40,
				DegradationFactor: 0.2,
			},
			bindingSpec{
				Prefix:             oidDocsisPower,
				Behavior:           "power_gauge",
				RangeMin:           -10,
				RangeMax:           10,
				WeatherCorrelation: true,
			},
		)
	}

	return NewBinder(specs)
}
