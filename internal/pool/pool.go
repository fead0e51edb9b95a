package pool

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/actor"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/distribution"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/profile"
)

var (
	// ErrUnknownPortRange means the port is not covered by any assignment.
	ErrUnknownPortRange = errors.New("port not in any configured assignment")
	// ErrPoolExhausted means creating the device would exceed MaxDevices.
	ErrPoolExhausted = errors.New("device pool exhausted")
	// ErrActorStartFailed wraps actor construction failures.
	ErrActorStartFailed = errors.New("device actor failed to start")
)

const (
	defaultIdleTimeout = 30 * time.Minute
	defaultMaxDevices  = 10_000
)

// Config tunes the pool. Zero values take the defaults above; the clock is
// injectable so eviction tests can pin time.
type Config struct {
	IdleTimeout    time.Duration
	MaxDevices     int
	ReaperInterval time.Duration
	Clock          func() time.Time
}

// Stats is a point-in-time snapshot of pool book-keeping. CreatedTotal and
// CleanedUpTotal are lifetime counters; readers must not assume
// CreatedTotal == ActiveCount + CleanedUpTotal, since crash removals are not
// counted as cleanups.
type Stats struct {
	ActiveCount    int
	CreatedTotal   uint64
	CleanedUpTotal uint64
	PeakCount      int
}

// slot is the single-flight rendezvous for one port. The winner materializes
// the device, then closes ready; losers wait on ready and read dev/err.
type slot struct {
	ready chan struct{}
	dev   *actor.Device
	err   error
}

// Pool is the lazy device registry: it materializes a device the first time
// its port is queried, enforces the device cap, and evicts idle devices.
type Pool struct {
	cfg     Config
	library *profile.Library

	mu          sync.Mutex
	assignments *distribution.PortAssignments
	devices     map[int]*slot
	active      int
	created     uint64
	cleaned     uint64
	peak        int

	reaper *cron.Cron
}

// New creates a pool backed by the given profile library.
func New(cfg Config, library *profile.Library) *Pool {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.MaxDevices <= 0 {
		cfg.MaxDevices = defaultMaxDevices
	}
	if cfg.ReaperInterval <= 0 {
		cfg.ReaperInterval = cfg.IdleTimeout / 2
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Pool{
		cfg:     cfg,
		library: library,
		devices: make(map[int]*slot),
	}
}

// ConfigurePortAssignments replaces the active assignments. Devices created
// under the previous assignments keep running.
func (p *Pool) ConfigurePortAssignments(pa *distribution.PortAssignments) error {
	if pa != nil {
		if err := pa.Validate(); err != nil {
			return fmt.Errorf("invalid assignments: %w", err)
		}
	}
	p.mu.Lock()
	p.assignments = pa
	p.mu.Unlock()
	return nil
}

// GetOrCreateDevice returns the device bound to port, materializing it on
// first use. Concurrent callers for the same port rendezvous on a single
// creation; exactly one actor exists per port.
func (p *Pool) GetOrCreateDevice(port int) (*actor.Device, error) {
	p.mu.Lock()
	if s, ok := p.devices[port]; ok {
		p.mu.Unlock()
		<-s.ready
		if s.err != nil {
			return nil, s.err
		}
		return s.dev, nil
	}

	deviceType, assigned := p.classifyLocked(port)
	if !assigned {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: port %d", ErrUnknownPortRange, port)
	}
	if len(p.devices) >= p.cfg.MaxDevices {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: cap %d reached", ErrPoolExhausted, p.cfg.MaxDevices)
	}

	s := &slot{ready: make(chan struct{})}
	p.devices[port] = s
	p.mu.Unlock()

	dev, err := p.materialize(port, deviceType)

	p.mu.Lock()
	if err != nil {
		delete(p.devices, port)
	} else {
		s.dev = dev
		p.active++
		p.created++
		if p.active > p.peak {
			p.peak = p.active
		}
		metricsOnCreate(p.active)
	}
	s.err = err
	p.mu.Unlock()
	close(s.ready)

	if err != nil {
		return nil, err
	}

	// monitor the actor so a crash clears the registry entry before the
	// next create observes it
	go func() {
		<-dev.Done()
		if p.remove(port, dev, false) {
			log.Printf("pool: device on port %d terminated, entry removed", port)
		}
	}()

	return dev, nil
}

func (p *Pool) classifyLocked(port int) (dt device.Type, ok bool) {
	if p.assignments == nil {
		return "", false
	}
	return p.assignments.DetermineDeviceType(port)
}

func (p *Pool) materialize(port int, dt device.Type) (*actor.Device, error) {
	set, err := p.library.Set(dt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrActorStartFailed, err)
	}
	dev, err := actor.New(actor.Config{
		Port:       port,
		DeviceType: dt,
		Profile:    set,
		Clock:      p.cfg.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrActorStartFailed, err)
	}
	return dev, nil
}

// remove deletes the registry entry for port if it still holds dev. Only
// deliberate evictions count toward CleanedUpTotal.
func (p *Pool) remove(port int, dev *actor.Device, deliberate bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.devices[port]
	if !ok || s.dev != dev {
		return false
	}
	delete(p.devices, port)
	p.active--
	if deliberate {
		p.cleaned++
	}
	metricsOnRemove(p.active, deliberate)
	return true
}

// ShutdownDevice stops the device on port. Idempotent: absent ports are a
// successful no-op.
func (p *Pool) ShutdownDevice(port int) {
	p.mu.Lock()
	s, ok := p.devices[port]
	p.mu.Unlock()
	if !ok {
		return
	}

	<-s.ready
	if s.dev == nil {
		return
	}
	if p.remove(port, s.dev, true) {
		s.dev.Stop()
	}
}

// ShutdownAllDevices stops every device and clears the registry. Lifetime
// counters are preserved.
func (p *Pool) ShutdownAllDevices() {
	for _, port := range p.ports() {
		p.ShutdownDevice(port)
	}
}

// CleanupIdleDevices evicts every device idle for at least the configured
// idle timeout and returns how many it removed. The reaper calls this
// periodically; it can also be invoked on demand.
func (p *Pool) CleanupIdleDevices() int {
	now := p.cfg.Clock()
	evicted := 0
	for _, port := range p.ports() {
		p.mu.Lock()
		s, ok := p.devices[port]
		p.mu.Unlock()
		if !ok {
			continue
		}

		select {
		case <-s.ready:
		default:
			continue // creation in flight, not idle
		}
		if s.dev == nil {
			continue
		}
		if now.Sub(s.dev.LastActivity()) < p.cfg.IdleTimeout {
			continue
		}
		if p.remove(port, s.dev, true) {
			s.dev.Stop()
			evicted++
		}
	}
	if evicted > 0 {
		log.Printf("pool: evicted %d idle devices", evicted)
	}
	return evicted
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		ActiveCount:    p.active,
		CreatedTotal:   p.created,
		CleanedUpTotal: p.cleaned,
		PeakCount:      p.peak,
	}
}

// StartReaper schedules periodic idle cleanup. Stop with StopReaper.
func (p *Pool) StartReaper() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reaper != nil {
		return
	}
	c := cron.New()
	c.Schedule(cron.Every(p.cfg.ReaperInterval), cron.FuncJob(func() {
		p.CleanupIdleDevices()
	}))
	c.Start()
	p.reaper = c
}

// StopReaper halts the periodic cleanup task.
func (p *Pool) StopReaper() {
	p.mu.Lock()
	c := p.reaper
	p.reaper = nil
	p.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// ActiveDevices snapshots every materialized device. Devices that stop
// between the snapshot and the query are skipped.
func (p *Pool) ActiveDevices() []actor.Info {
	p.mu.Lock()
	devs := make([]*actor.Device, 0, len(p.devices))
	for _, s := range p.devices {
		select {
		case <-s.ready:
			if s.dev != nil {
				devs = append(devs, s.dev)
			}
		default:
		}
	}
	p.mu.Unlock()

	infos := make([]actor.Info, 0, len(devs))
	for _, d := range devs {
		info, err := d.Info()
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Port < infos[j].Port })
	return infos
}

func (p *Pool) ports() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, 0, len(p.devices))
	for port := range p.devices {
		out = append(out, port)
	}
	return out
}
