package distribution

import (
	"errors"
	"fmt"
	"sort"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
)

var (
	ErrInsufficientPorts = errors.New("port range too small for device mix")
	ErrUnknownMix        = errors.New("unknown device mix")
)

// Mix maps device types to desired instance counts.
type Mix map[device.Type]int

// PortRange is a half-open-free inclusive range [Start, End] of UDP ports.
type PortRange struct {
	Start int
	End   int
}

// Size returns the number of ports in the range.
func (r PortRange) Size() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether p lies within the range.
func (r PortRange) Contains(p int) bool {
	return p >= r.Start && p <= r.End
}

// PortAssignments maps each device type to its contiguous port slice. Slices
// are pairwise disjoint by construction.
type PortAssignments struct {
	Universe PortRange
	ranges   map[device.Type]PortRange
	// sorted by Start for binary-search classification
	ordered []typedRange
}

type typedRange struct {
	r PortRange
	t device.Type
}

// DensityStats summarizes a set of port assignments.
type DensityStats struct {
	TotalDevices  int
	LargestType   device.Type
	LargestCount  int
	PerTypeCounts map[device.Type]int
}

var presets = map[string]Mix{
	"small_test": {
		device.CableModem: 10,
		device.Switch:     2,
	},
	"medium_test": {
		device.CableModem: 100,
		device.MTA:        20,
		device.Switch:     10,
		device.Router:     5,
	},
	"large_test": {
		device.CableModem: 5000,
		device.MTA:        1000,
		device.CMTS:       10,
		device.Switch:     200,
		device.Router:     50,
		device.Server:     100,
	},
	"cable_network": {
		device.CableModem: 2000,
		device.MTA:        800,
		device.CMTS:       4,
		device.Router:     10,
	},
	"enterprise_network": {
		device.Switch: 150,
		device.Router: 30,
		device.Server: 200,
	},
	"mixed_fleet": {
		device.CableModem: 500,
		device.MTA:        100,
		device.CMTS:       2,
		device.Switch:     50,
		device.Router:     20,
		device.Server:     40,
	},
}

// GetDeviceMix resolves a named preset mix.
func GetDeviceMix(name string) (Mix, error) {
	mix, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMix, name)
	}
	out := make(Mix, len(mix))
	for t, n := range mix {
		out[t] = n
	}
	return out, nil
}

// MixNames returns the available preset names, sorted.
func MixNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Total returns the device count across all types in the mix.
func (m Mix) Total() int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

// Validate checks counts are non-negative and types are known.
func (m Mix) Validate() error {
	for t, n := range m {
		if !t.Valid() {
			return fmt.Errorf("unknown device type %q in mix", t)
		}
		if n < 0 {
			return fmt.Errorf("negative count %d for %s", n, t)
		}
	}
	return nil
}

// TypeCount is one slice request for sequential assignment.
type TypeCount struct {
	Type  device.Type
	Count int
}

// BuildPortAssignments carves contiguous port slices out of portRange, one per
// device type in the canonical type order. Types with a zero count get no
// slice. Fails with ErrInsufficientPorts when the range cannot hold the mix.
func BuildPortAssignments(mix Mix, portRange PortRange) (*PortAssignments, error) {
	if err := mix.Validate(); err != nil {
		return nil, err
	}
	specs := make([]TypeCount, 0, len(mix))
	for _, t := range device.AllTypes {
		if mix[t] > 0 {
			specs = append(specs, TypeCount{Type: t, Count: mix[t]})
		}
	}
	return AssignSequential(specs, portRange)
}

// AssignSequential carves slices in the given spec order. Repeated types are
// rejected; counts must be non-negative.
func AssignSequential(specs []TypeCount, portRange PortRange) (*PortAssignments, error) {
	total := 0
	seen := make(map[device.Type]bool, len(specs))
	for _, s := range specs {
		if !s.Type.Valid() {
			return nil, fmt.Errorf("unknown device type %q", s.Type)
		}
		if s.Count < 0 {
			return nil, fmt.Errorf("negative count %d for %s", s.Count, s.Type)
		}
		if seen[s.Type] {
			return nil, fmt.Errorf("duplicate device type %q", s.Type)
		}
		seen[s.Type] = true
		total += s.Count
	}
	if total > portRange.Size() {
		return nil, fmt.Errorf("%w: need %d ports, range %d-%d holds %d",
			ErrInsufficientPorts, total, portRange.Start, portRange.End, portRange.Size())
	}

	pa := &PortAssignments{
		Universe: portRange,
		ranges:   make(map[device.Type]PortRange),
	}

	next := portRange.Start
	for _, s := range specs {
		if s.Count <= 0 {
			continue
		}
		r := PortRange{Start: next, End: next + s.Count - 1}
		pa.ranges[s.Type] = r
		pa.ordered = append(pa.ordered, typedRange{r: r, t: s.Type})
		next = r.End + 1
	}

	return pa, nil
}

// Validate confirms pairwise disjointness and that every assigned port lies
// within the declared universe.
func (pa *PortAssignments) Validate() error {
	for t, r := range pa.ranges {
		if !pa.Universe.Contains(r.Start) || !pa.Universe.Contains(r.End) {
			return fmt.Errorf("%s range %d-%d escapes universe %d-%d",
				t, r.Start, r.End, pa.Universe.Start, pa.Universe.End)
		}
		for u, o := range pa.ranges {
			if t == u {
				continue
			}
			if r.Start <= o.End && o.Start <= r.End {
				return fmt.Errorf("overlapping assignments: %s %d-%d and %s %d-%d",
					t, r.Start, r.End, u, o.Start, o.End)
			}
		}
	}
	return nil
}

// Range returns the port slice for a type, if it has one.
func (pa *PortAssignments) Range(t device.Type) (PortRange, bool) {
	r, ok := pa.ranges[t]
	return r, ok
}

// Ports returns every assigned port for a type in ascending order.
func (pa *PortAssignments) Ports(t device.Type) []int {
	r, ok := pa.ranges[t]
	if !ok {
		return nil
	}
	out := make([]int, 0, r.Size())
	for p := r.Start; p <= r.End; p++ {
		out = append(out, p)
	}
	return out
}

// DetermineDeviceType classifies a port into its device type. The second
// return is false when the port is not covered by any assignment.
func (pa *PortAssignments) DetermineDeviceType(port int) (device.Type, bool) {
	if pa == nil || len(pa.ordered) == 0 {
		return "", false
	}
	// ordered is sorted by Start since slices are carved in ascending order
	i := sort.Search(len(pa.ordered), func(i int) bool {
		return pa.ordered[i].r.End >= port
	})
	if i < len(pa.ordered) && pa.ordered[i].r.Contains(port) {
		return pa.ordered[i].t, true
	}
	return "", false
}

// CalculateDensityStats summarizes per-type device counts.
func (pa *PortAssignments) CalculateDensityStats() DensityStats {
	stats := DensityStats{PerTypeCounts: make(map[device.Type]int)}
	for _, tr := range pa.ordered {
		n := tr.r.Size()
		stats.PerTypeCounts[tr.t] = n
		stats.TotalDevices += n
		if n > stats.LargestCount {
			stats.LargestCount = n
			stats.LargestType = tr.t
		}
	}
	return stats
}
