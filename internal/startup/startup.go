package startup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/distribution"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/pool"
)

var (
	// ErrPopulationIncomplete means fewer than the success threshold of
	// requested devices came up.
	ErrPopulationIncomplete = errors.New("device population incomplete")
	// ErrTaskTimeout marks a single device creation that overran its timeout.
	ErrTaskTimeout = errors.New("device creation timed out")
)

const (
	defaultWorkers     = 10
	defaultTaskTimeout = 10 * time.Second
	successThreshold   = 0.8
)

// Options tunes a population start.
type Options struct {
	PortRange       distribution.PortRange
	ParallelWorkers int
	PerTaskTimeout  time.Duration
}

// Failure records one device that could not be created.
type Failure struct {
	Port       int
	DeviceType device.Type
	Err        error
}

// Result aggregates the outcome of a population start.
type Result struct {
	TotalDevices   int
	PerTypeCreated map[device.Type]int
	Failures       []Failure
}

// Status describes the manager's current population.
type Status struct {
	ActiveDevices int
	StartedAt     time.Time
	LastError     error
}

// Manager pre-warms and tears down whole device populations on top of the
// lazy pool.
type Manager struct {
	pool *pool.Pool

	mu        sync.Mutex
	startedAt time.Time
	lastErr   error
}

// NewManager wraps a pool with population orchestration.
func NewManager(p *pool.Pool) *Manager {
	return &Manager{pool: p}
}

type job struct {
	port       int
	deviceType device.Type
}

// StartDevicePopulation partitions opts.PortRange across the specs in order,
// configures the pool, and fans creation across a bounded worker pool.
// A start is reported successful when at least 80% of the requested devices
// materialized; below that it returns ErrPopulationIncomplete along with the
// partial result.
func (m *Manager) StartDevicePopulation(ctx context.Context, specs []distribution.TypeCount, opts Options) (*Result, error) {
	workers := opts.ParallelWorkers
	if workers <= 0 {
		workers = defaultWorkers
	}
	taskTimeout := opts.PerTaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = defaultTaskTimeout
	}

	pa, err := distribution.AssignSequential(specs, opts.PortRange)
	if err != nil {
		m.recordError(err)
		return nil, err
	}
	if err := m.pool.ConfigurePortAssignments(pa); err != nil {
		m.recordError(err)
		return nil, err
	}

	requested := 0
	var jobs []job
	for _, s := range specs {
		for _, port := range pa.Ports(s.Type) {
			jobs = append(jobs, job{port: port, deviceType: s.Type})
		}
		requested += s.Count
	}

	result := &Result{PerTypeCreated: make(map[device.Type]int)}
	var resultMu sync.Mutex

	jobCh := make(chan job)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				err := m.createOne(ctx, j.port, taskTimeout)
				resultMu.Lock()
				if err != nil {
					result.Failures = append(result.Failures, Failure{
						Port:       j.port,
						DeviceType: j.deviceType,
						Err:        err,
					})
				} else {
					result.TotalDevices++
					result.PerTypeCreated[j.deviceType]++
				}
				resultMu.Unlock()
			}
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case jobCh <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobCh)
	wg.Wait()

	m.mu.Lock()
	m.startedAt = time.Now()
	m.mu.Unlock()

	log.Printf("startup: %d/%d devices created across %d types (%d failures)",
		result.TotalDevices, requested, len(result.PerTypeCreated), len(result.Failures))

	if requested > 0 && float64(result.TotalDevices) < successThreshold*float64(requested) {
		err := fmt.Errorf("%w: %d of %d requested", ErrPopulationIncomplete, result.TotalDevices, requested)
		m.recordError(err)
		return result, err
	}
	m.recordError(nil)
	return result, nil
}

// StartDeviceMix starts a named preset population.
func (m *Manager) StartDeviceMix(ctx context.Context, name string, opts Options) (*Result, error) {
	mix, err := distribution.GetDeviceMix(name)
	if err != nil {
		m.recordError(err)
		return nil, err
	}
	return m.StartDevicePopulation(ctx, MixToSpecs(mix), opts)
}

// MixToSpecs flattens a mix into specs in the canonical type order.
func MixToSpecs(mix distribution.Mix) []distribution.TypeCount {
	specs := make([]distribution.TypeCount, 0, len(mix))
	for _, t := range device.AllTypes {
		if mix[t] > 0 {
			specs = append(specs, distribution.TypeCount{Type: t, Count: mix[t]})
		}
	}
	return specs
}

// ShutdownDevicePopulation stops every device and resets startup
// book-keeping. Pool lifetime counters survive.
func (m *Manager) ShutdownDevicePopulation() {
	m.pool.ShutdownAllDevices()
	m.mu.Lock()
	m.startedAt = time.Time{}
	m.lastErr = nil
	m.mu.Unlock()
}

// GetStartupStatus reports the live device count and last orchestration
// error.
func (m *Manager) GetStartupStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		ActiveDevices: m.pool.Stats().ActiveCount,
		StartedAt:     m.startedAt,
		LastError:     m.lastErr,
	}
}

// createOne runs one pool create under the per-task timeout. The create keeps
// running past a timeout; the device may come up late and is then subject to
// normal idle eviction.
func (m *Manager) createOne(ctx context.Context, port int, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		_, err := m.pool.GetOrCreateDevice(port)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("%w: port %d", ErrTaskTimeout, port)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) recordError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
