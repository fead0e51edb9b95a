package simulate

// Pattern names the variation shape a gauge behavior follows.
type Pattern string

const (
	PatternDailyVariation     Pattern = "daily_variation"
	PatternInverseUtilization Pattern = "inverse_utilization"
	PatternSignalQuality      Pattern = "signal_quality"
)

// Range is an inclusive numeric interval.
type Range struct {
	Min float64
	Max float64
}

// Span returns Max-Min, never negative.
func (r Range) Span() float64 {
	if r.Max < r.Min {
		return 0
	}
	return r.Max - r.Min
}

// Mid returns the range midpoint.
func (r Range) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// Clamp forces v into the range.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Behavior describes how an OID's value evolves over time. The set is closed;
// the simulator falls back to the static profile value for anything it does
// not recognize.
type Behavior interface {
	isBehavior()
}

// TrafficCounter models octet counters that grow with traffic load.
type TrafficCounter struct {
	RateRange          Range // bits per second
	TimeOfDayVariation bool
	BurstProbability   float64
}

// UtilizationGauge models percent-style load gauges.
type UtilizationGauge struct {
	Range     Range
	Pattern   Pattern
	PeakHours [2]int // local hours, start and end
}

// SNRGauge models signal-to-noise readings that degrade under load.
type SNRGauge struct {
	Range             Range
	DegradationFactor float64
}

// PowerGauge models RF power levels driven by signal quality.
type PowerGauge struct {
	Range              Range
	WeatherCorrelation bool
}

// ErrorCounter models error counters correlated with load and signal.
type ErrorCounter struct {
	RateRange                  Range // errors per second
	ErrorBurstProbability      float64
	CorrelationWithUtilization bool
}

// UptimeCounter models sysUpTime-style timeticks.
type UptimeCounter struct {
	IncrementRate    float64 // ticks per second of uptime
	ResetProbability float64
}

// StatusEnum models health-driven operational status strings.
type StatusEnum struct{}

// TemperatureGauge models chassis temperature, optionally load-coupled.
type TemperatureGauge struct {
	Range           Range
	LoadCorrelation bool
}

// StaticValue returns the profile value unchanged.
type StaticValue struct{}

func (TrafficCounter) isBehavior()   {}
func (UtilizationGauge) isBehavior() {}
func (SNRGauge) isBehavior()         {}
func (PowerGauge) isBehavior()       {}
func (ErrorCounter) isBehavior()     {}
func (UptimeCounter) isBehavior()    {}
func (StatusEnum) isBehavior()       {}
func (TemperatureGauge) isBehavior() {}
func (StaticValue) isBehavior()      {}
