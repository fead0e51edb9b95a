package device

import (
	"fmt"
	"math/rand"
	"time"
)

// Type identifies the kind of network device a virtual agent emulates.
type Type string

const (
	CableModem Type = "cable_modem"
	MTA        Type = "mta"
	CMTS       Type = "cmts"
	Switch     Type = "switch"
	Router     Type = "router"
	Server     Type = "server"
)

// AllTypes lists every known device type in the canonical assignment order.
// Port assignment slices are carved out in this order, so it must stay stable.
var AllTypes = []Type{CableModem, MTA, CMTS, Switch, Router, Server}

// Valid reports whether t is one of the known device types.
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Characteristics holds static, per-type metadata used to seed device state
// and drive behavior defaults.
type Characteristics struct {
	TypicalInterfaces  int
	SignalMonitoring   bool
	ExpectedUptimeDays int
	BaseTemperature    float64 // idle operating temperature, celsius
	TrafficWeight      float64 // relative traffic volume vs a cable modem
}

var characteristics = map[Type]Characteristics{
	CableModem: {
		TypicalInterfaces:  2,
		SignalMonitoring:   true,
		ExpectedUptimeDays: 30,
		BaseTemperature:    38,
		TrafficWeight:      1,
	},
	MTA: {
		TypicalInterfaces:  2,
		SignalMonitoring:   true,
		ExpectedUptimeDays: 30,
		BaseTemperature:    36,
		TrafficWeight:      0.2,
	},
	CMTS: {
		TypicalInterfaces:  64,
		SignalMonitoring:   true,
		ExpectedUptimeDays: 365,
		BaseTemperature:    45,
		TrafficWeight:      500,
	},
	Switch: {
		TypicalInterfaces:  48,
		SignalMonitoring:   false,
		ExpectedUptimeDays: 180,
		BaseTemperature:    42,
		TrafficWeight:      100,
	},
	Router: {
		TypicalInterfaces:  24,
		SignalMonitoring:   false,
		ExpectedUptimeDays: 180,
		BaseTemperature:    44,
		TrafficWeight:      200,
	},
	Server: {
		TypicalInterfaces:  4,
		SignalMonitoring:   false,
		ExpectedUptimeDays: 90,
		BaseTemperature:    40,
		TrafficWeight:      50,
	},
}

// GetCharacteristics returns the static metadata for a device type.
func GetCharacteristics(t Type) (Characteristics, error) {
	c, ok := characteristics[t]
	if !ok {
		return Characteristics{}, fmt.Errorf("unknown device type %q", t)
	}
	return c, nil
}

// State is the mutable per-device simulation state. It is owned exclusively
// by the device's actor goroutine; nothing else may mutate it.
type State struct {
	DeviceID   string
	Port       int
	DeviceType Type

	UptimeSeconds        float64
	InterfaceUtilization float64 // [0,1]
	CPUUtilization       float64 // [0,1]
	SignalQuality        float64 // [0,1]
	TemperatureCelsius   float64
	HealthScore          float64 // [0,1]
	ErrorRate            float64 // [0,1]
	UtilizationBias      float64

	LastActivity time.Time

	// CounterAccumulators tracks true 64-bit cumulative growth per OID so
	// Counter32 wraps never produce backward jumps under clock skew.
	CounterAccumulators map[string]uint64
	// CounterSampledAt records the uptime at which each counter OID was last
	// sampled, so increments cover only the elapsed interval.
	CounterSampledAt map[string]float64
}

// NewState seeds a fresh device state from type characteristics. The RNG is
// injected so tests can pin the seed.
func NewState(port int, t Type, rng *rand.Rand, now time.Time) *State {
	c := characteristics[t]
	if c.BaseTemperature == 0 {
		c = characteristics[CableModem]
	}

	return &State{
		DeviceID:             fmt.Sprintf("%s-%d", t, port),
		Port:                 port,
		DeviceType:           t,
		UptimeSeconds:        0,
		InterfaceUtilization: 0.2 + 0.4*rng.Float64(),
		CPUUtilization:       0.1 + 0.3*rng.Float64(),
		SignalQuality:        0.7 + 0.3*rng.Float64(),
		TemperatureCelsius:   c.BaseTemperature + 4*rng.Float64() - 2,
		HealthScore:          0.85 + 0.15*rng.Float64(),
		ErrorRate:            0.02 * rng.Float64(),
		UtilizationBias:      0.8 + 0.4*rng.Float64(),
		LastActivity:         now,
		CounterAccumulators:  make(map[string]uint64),
		CounterSampledAt:     make(map[string]float64),
	}
}

// Touch records externally-observable activity; the pool's reaper uses it.
func (s *State) Touch(now time.Time) {
	s.LastActivity = now
}

// Advance moves the device clock forward by delta.
func (s *State) Advance(delta time.Duration) {
	if delta > 0 {
		s.UptimeSeconds += delta.Seconds()
	}
}
