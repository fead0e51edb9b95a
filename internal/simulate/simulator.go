package simulate

import (
	"math"
	"math/rand"
	"time"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
)

// Simulator turns static profile values into live ones according to a
// behavior. It carries no global state: the RNG and clock are injected so
// tests can pin both. A Simulator is not safe for concurrent use; each device
// actor owns its own instance.
type Simulator struct {
	rng *rand.Rand
	now func() time.Time
}

// New creates a simulator. A nil rng gets a time-seeded source, a nil clock
// defaults to time.Now.
func New(rng *rand.Rand, now func() time.Time) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Simulator{rng: rng, now: now}
}

// Value produces the current value for oid given its static profile datum,
// behavior, and the owning device's state. Unknown or nil behaviors fall back
// to the static profile value; Value never fails.
func (s *Simulator) Value(oid string, d Datum, b Behavior, st *device.State) Value {
	switch bb := b.(type) {
	case TrafficCounter:
		return s.trafficCounter(oid, d, bb, st)
	case UtilizationGauge:
		return s.utilizationGauge(bb, st)
	case SNRGauge:
		return s.snrGauge(bb, st)
	case PowerGauge:
		return s.powerGauge(bb, st)
	case ErrorCounter:
		return s.errorCounter(oid, d, bb, st)
	case UptimeCounter:
		return s.uptimeCounter(bb, st)
	case StatusEnum:
		return s.statusEnum(st)
	case TemperatureGauge:
		return s.temperatureGauge(bb, st)
	default:
		return Static(d)
	}
}

func (s *Simulator) trafficCounter(oid string, d Datum, b TrafficCounter, st *device.State) Value {
	base, _ := toUint64(d.Value)
	window := counterWindow(oid, st)

	rate := s.uniform(b.RateRange) // bits per second
	if b.TimeOfDayVariation {
		rate *= s.timeOfDayFactor()
	}
	rate *= utilizationOf(st)
	if b.BurstProbability > 0 && s.rng.Float64() < b.BurstProbability {
		rate *= s.uniform(Range{Min: 2, Max: 5})
	}

	// Octet convention: counters advance by floor(bits * dt / 8) bytes.
	increment := uint64(rate * window / 8)
	return counter32(base + accumulate(oid, st, increment))
}

func (s *Simulator) utilizationGauge(b UtilizationGauge, st *device.State) Value {
	v := b.Range.Mid()
	if b.Pattern == PatternDailyVariation {
		v += 0.3 * b.Range.Span() * s.peakFactor(b.PeakHours)
	}
	if st != nil && st.UtilizationBias > 0 {
		v *= st.UtilizationBias
	}
	v += s.rng.NormFloat64() * 0.02 * b.Range.Span()
	return gauge32(v, b.Range)
}

func (s *Simulator) snrGauge(b SNRGauge, st *device.State) Value {
	v := b.Range.Mid()
	v -= b.DegradationFactor * utilizationOf(st) * b.Range.Span()
	v += s.rng.NormFloat64() * 0.01 * b.Range.Span()
	return gauge32(v, b.Range)
}

func (s *Simulator) powerGauge(b PowerGauge, st *device.State) Value {
	center := b.Range.Mid()
	if b.Range.Min < 0 && b.Range.Max > 0 {
		center = 0
	}
	v := center + (signalQualityOf(st)-0.5)*b.Range.Span()
	if b.WeatherCorrelation {
		v -= math.Max(0, temperatureOf(st)-25) * 0.05 * b.Range.Span()
	}
	v += s.rng.NormFloat64() * 0.01 * b.Range.Span()
	return gauge32(v, b.Range)
}

func (s *Simulator) errorCounter(oid string, d Datum, b ErrorCounter, st *device.State) Value {
	base, _ := toUint64(d.Value)
	window := counterWindow(oid, st)

	rate := s.uniform(b.RateRange) // errors per second
	if b.CorrelationWithUtilization {
		rate *= (1 - signalQualityOf(st)) + utilizationOf(st)
	}
	if b.ErrorBurstProbability > 0 && s.rng.Float64() < b.ErrorBurstProbability {
		rate *= s.uniform(Range{Min: 10, Max: 50})
	}

	increment := uint64(rate * window)
	return counter32(base + accumulate(oid, st, increment))
}

func (s *Simulator) uptimeCounter(b UptimeCounter, st *device.State) Value {
	if b.ResetProbability > 0 && s.rng.Float64() < b.ResetProbability {
		// Agent restart: one zero sample, uptime itself keeps running.
		return timeticks(0)
	}
	rate := b.IncrementRate
	if rate <= 0 {
		rate = 100 // centiseconds, the sysUpTime convention
	}
	up := 0.0
	if st != nil {
		up = st.UptimeSeconds
	}
	return timeticks(uint64(up * rate))
}

func (s *Simulator) statusEnum(st *device.State) Value {
	health, errRate := 1.0, 0.0
	if st != nil {
		health = st.HealthScore
		errRate = st.ErrorRate
	}
	score := health - 2*errRate
	switch {
	case score > 0.7:
		return octetString("up")
	case score > 0.4:
		return octetString("degraded")
	default:
		return octetString("down")
	}
}

func (s *Simulator) temperatureGauge(b TemperatureGauge, st *device.State) Value {
	base := b.Range.Mid()
	if st != nil && st.TemperatureCelsius != 0 {
		base = st.TemperatureCelsius
	}
	v := base
	if b.LoadCorrelation && st != nil {
		v += st.CPUUtilization * 30
	}
	v += s.rng.NormFloat64() * 0.5
	return gauge32(v, b.Range)
}

func (s *Simulator) uniform(r Range) float64 {
	if r.Span() == 0 {
		return r.Min
	}
	return r.Min + s.rng.Float64()*r.Span()
}

// timeOfDayFactor is a diurnal multiplier within [0.5, 1.5], peaking at 14:00
// and bottoming out at 04:00. The morning ramp covers 10 hours and the
// evening decay 14, so the curve is skewed rather than a symmetric sinusoid.
func (s *Simulator) timeOfDayFactor() float64 {
	t := s.now()
	hour := float64(t.Hour()) + float64(t.Minute())/60
	since := math.Mod(hour-4+24, 24) // hours past the 04:00 trough
	if since <= 10 {
		return 1 - 0.5*math.Cos(math.Pi*since/10)
	}
	return 1 + 0.5*math.Cos(math.Pi*(since-10)/14)
}

// peakFactor maps the current hour onto [-1, 1], highest at the middle of the
// peak window.
func (s *Simulator) peakFactor(peak [2]int) float64 {
	t := s.now()
	hour := float64(t.Hour()) + float64(t.Minute())/60
	mid := float64(peak[0]+peak[1]) / 2
	return math.Cos(2 * math.Pi * (hour - mid) / 24)
}

// counterWindow returns the uptime interval since the oid was last sampled
// and records the new sample point. The first sample covers the device's
// whole lifetime.
func counterWindow(oid string, st *device.State) float64 {
	if st == nil {
		return 1
	}
	if st.CounterSampledAt == nil {
		st.CounterSampledAt = make(map[string]float64)
	}
	last, seen := st.CounterSampledAt[oid]
	st.CounterSampledAt[oid] = st.UptimeSeconds
	if !seen {
		return st.UptimeSeconds
	}
	if st.UptimeSeconds <= last {
		return 0
	}
	return st.UptimeSeconds - last
}

// accumulate adds delta to the oid's 64-bit accumulator and returns the
// running total. Wrapping to 32 bits happens only at output.
func accumulate(oid string, st *device.State, delta uint64) uint64 {
	if st == nil {
		return delta
	}
	if st.CounterAccumulators == nil {
		st.CounterAccumulators = make(map[string]uint64)
	}
	st.CounterAccumulators[oid] += delta
	return st.CounterAccumulators[oid]
}

func utilizationOf(st *device.State) float64 {
	if st == nil || st.InterfaceUtilization <= 0 {
		return 0.5
	}
	return st.InterfaceUtilization
}

func signalQualityOf(st *device.State) float64 {
	if st == nil || st.SignalQuality <= 0 {
		return 0.9
	}
	return st.SignalQuality
}

func temperatureOf(st *device.State) float64 {
	if st == nil || st.TemperatureCelsius == 0 {
		return 40
	}
	return st.TemperatureCelsius
}
