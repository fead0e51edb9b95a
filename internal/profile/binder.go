package profile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/simulate"
)

// Binder maps OID prefixes to behavior descriptors. Lookups pick the longest
// matching prefix; anything unbound simulates as a static value.
type Binder struct {
	bindings []prefixBinding
}

type prefixBinding struct {
	prefix   string
	behavior simulate.Behavior
}

type binderConfig struct {
	Bindings []bindingSpec `yaml:"bindings"`
}

type bindingSpec struct {
	Prefix   string `yaml:"prefix"`
	Behavior string `yaml:"behavior"`

	RateMin float64 `yaml:"rate_min"`
	RateMax float64 `yaml:"rate_max"`

	RangeMin float64 `yaml:"range_min"`
	RangeMax float64 `yaml:"range_max"`

	Pattern       string `yaml:"pattern"`
	PeakHourStart int    `yaml:"peak_hour_start"`
	PeakHourEnd   int    `yaml:"peak_hour_end"`

	TimeOfDayVariation bool    `yaml:"time_of_day_variation"`
	BurstProbability   float64 `yaml:"burst_probability"`

	DegradationFactor  float64 `yaml:"degradation_factor"`
	WeatherCorrelation bool    `yaml:"weather_correlation"`

	ErrorBurstProbability      float64 `yaml:"error_burst_probability"`
	CorrelationWithUtilization bool    `yaml:"correlation_with_utilization"`

	IncrementRate    float64 `yaml:"increment_rate"`
	ResetProbability float64 `yaml:"reset_probability"`

	LoadCorrelation bool `yaml:"load_correlation"`
}

// NewBinder builds a binder from parsed specs, sorted longest-prefix-first.
func NewBinder(specs []bindingSpec) (*Binder, error) {
	out := make([]prefixBinding, 0, len(specs))
	for i, spec := range specs {
		prefix := normalizeOID(spec.Prefix)
		if prefix == "" {
			return nil, fmt.Errorf("binding %d: prefix is required", i)
		}
		out = append(out, prefixBinding{prefix: prefix, behavior: buildBehavior(spec)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].prefix) > len(out[j].prefix)
	})

	return &Binder{bindings: out}, nil
}

// LoadBinder reads behavior bindings from a YAML file.
func LoadBinder(path string) (*Binder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read behavior file: %w", err)
	}
	var cfg binderConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse behavior yaml: %w", err)
	}
	return NewBinder(cfg.Bindings)
}

// Lookup returns the behavior bound to the longest prefix covering oid, or
// nil when nothing matches (the simulator treats nil as static).
func (b *Binder) Lookup(oid string) simulate.Behavior {
	if b == nil {
		return nil
	}
	oid = normalizeOID(oid)
	for _, entry := range b.bindings {
		if matchesPrefix(oid, entry.prefix) {
			return entry.behavior
		}
	}
	return nil
}

func matchesPrefix(oid, prefix string) bool {
	if oid == prefix {
		return true
	}
	return strings.HasPrefix(oid, prefix+".")
}

// buildBehavior maps a spec onto its descriptor. Unrecognized behavior names
// bind as static rather than failing: a bad binding must never take a device
// down.
func buildBehavior(spec bindingSpec) simulate.Behavior {
	switch strings.ToLower(strings.TrimSpace(spec.Behavior)) {
	case "traffic_counter":
		return simulate.TrafficCounter{
			RateRange:          simulate.Range{Min: spec.RateMin, Max: spec.RateMax},
			TimeOfDayVariation: spec.TimeOfDayVariation,
			BurstProbability:   spec.BurstProbability,
		}
	case "utilization_gauge":
		return simulate.UtilizationGauge{
			Range:     simulate.Range{Min: spec.RangeMin, Max: spec.RangeMax},
			Pattern:   simulate.Pattern(spec.Pattern),
			PeakHours: [2]int{spec.PeakHourStart, spec.PeakHourEnd},
		}
	case "snr_gauge":
		return simulate.SNRGauge{
			Range:             simulate.Range{Min: spec.RangeMin, Max: spec.RangeMax},
			DegradationFactor: spec.DegradationFactor,
		}
	case "power_gauge":
		return simulate.PowerGauge{
			Range:              simulate.Range{Min: spec.RangeMin, Max: spec.RangeMax},
			WeatherCorrelation: spec.WeatherCorrelation,
		}
	case "error_counter":
		return simulate.ErrorCounter{
			RateRange:                  simulate.Range{Min: spec.RateMin, Max: spec.RateMax},
			ErrorBurstProbability:      spec.ErrorBurstProbability,
			CorrelationWithUtilization: spec.CorrelationWithUtilization,
		}
	case "uptime_counter":
		return simulate.UptimeCounter{
			IncrementRate:    spec.IncrementRate,
			ResetProbability: spec.ResetProbability,
		}
	case "status_enum":
		return simulate.StatusEnum{}
	case "temperature_gauge":
		return simulate.TemperatureGauge{
			Range:           simulate.Range{Min: spec.RangeMin, Max: spec.RangeMax},
			LoadCorrelation: spec.LoadCorrelation,
		}
	case "static_value", "":
		return simulate.StaticValue{}
	default:
		return simulate.StaticValue{}
	}
}
