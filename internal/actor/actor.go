package actor

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/profile"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/simulate"
)

// ErrStopped is returned when a request reaches an actor that is no longer
// running.
var ErrStopped = errors.New("device actor stopped")

// stopGrace bounds how long Stop waits for the mailbox loop to drain.
const stopGrace = time.Second

// Config carries everything an actor needs at creation. The profile set is
// shared and read-only; state is private to the actor.
type Config struct {
	Port       int
	DeviceType device.Type
	Profile    *profile.Set
	Seed       int64
	Clock      func() time.Time
}

// Info is a snapshot of actor identity and progress.
type Info struct {
	DeviceID      string
	Port          int
	DeviceType    device.Type
	UptimeSeconds float64
	PollCount     int64
	LastActivity  time.Time
}

type request struct {
	packet []byte
	oid    string
	info   bool
	reply  chan response
}

type response struct {
	packet []byte
	value  simulate.Value
	info   Info
	err    error
}

// Device is a virtual SNMP device behind a single-consumer mailbox. Its
// state is reachable only from the mailbox goroutine.
type Device struct {
	port       int
	deviceType device.Type
	set        *profile.Set
	clock      func() time.Time

	requests chan request
	stop     chan struct{}
	kill     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	killOnce sync.Once

	lastActivity atomic.Int64 // unix nanos, read by the reaper
	pollCount    atomic.Int64
}

// New starts a device actor. The caller owns the returned handle; the state
// lives inside the mailbox goroutine.
func New(cfg Config) (*Device, error) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if !cfg.DeviceType.Valid() {
		return nil, fmt.Errorf("invalid device type %q", cfg.DeviceType)
	}
	if cfg.Profile == nil || cfg.Profile.Store == nil {
		return nil, errors.New("profile set is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano() ^ int64(cfg.Port)<<16
	}

	d := &Device{
		port:       cfg.Port,
		deviceType: cfg.DeviceType,
		set:        cfg.Profile,
		clock:      clock,
		requests:   make(chan request),
		stop:       make(chan struct{}),
		kill:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	d.lastActivity.Store(clock().UnixNano())

	rng := rand.New(rand.NewSource(seed))
	st := device.NewState(cfg.Port, cfg.DeviceType, rng, clock())
	sim := simulate.New(rng, clock)

	go d.loop(st, sim)
	return d, nil
}

// Info returns a snapshot of the actor's identity and counters.
func (d *Device) Info() (Info, error) {
	resp, err := d.send(request{info: true})
	if err != nil {
		return Info{}, err
	}
	return resp.info, nil
}

// HandleSNMP processes a raw SNMP datagram and returns the response bytes.
// A nil response with nil error means the packet should be dropped.
func (d *Device) HandleSNMP(packet []byte) ([]byte, error) {
	resp, err := d.send(request{packet: packet})
	if err != nil {
		return nil, err
	}
	return resp.packet, resp.err
}

// Value simulates the current value for a single OID. It exists for callers
// that bypass PDU encoding, tests most of all.
func (d *Device) Value(oid string) (simulate.Value, error) {
	resp, err := d.send(request{oid: oid})
	if err != nil {
		return simulate.Value{}, err
	}
	return resp.value, resp.err
}

// LastActivity reports when the actor last served an external request. The
// pool's reaper polls this without touching the mailbox.
func (d *Device) LastActivity() time.Time {
	return time.Unix(0, d.lastActivity.Load())
}

// Port returns the UDP port this device answers on.
func (d *Device) Port() int { return d.port }

// DeviceType returns the simulated device type.
func (d *Device) DeviceType() device.Type { return d.deviceType }

// Done is closed when the mailbox loop has exited, whether by Stop, Kill, or
// an internal panic. The pool monitors it to clean the registry.
func (d *Device) Done() <-chan struct{} { return d.done }

// Stop asks the actor to exit and waits up to the grace period. Idempotent.
func (d *Device) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
	select {
	case <-d.done:
	case <-time.After(stopGrace):
		// cooperative shutdown timed out, abandon the loop
		d.Kill()
	}
}

// Kill terminates the actor immediately without draining the mailbox.
func (d *Device) Kill() {
	d.killOnce.Do(func() { close(d.kill) })
}

func (d *Device) send(req request) (response, error) {
	req.reply = make(chan response, 1)
	select {
	case d.requests <- req:
	case <-d.done:
		return response{}, ErrStopped
	}
	select {
	case resp := <-req.reply:
		return resp, nil
	case <-d.done:
		return response{}, ErrStopped
	}
}

// loop is the single consumer of the mailbox; it alone touches st.
func (d *Device) loop(st *device.State, sim *simulate.Simulator) {
	defer close(d.done)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("device %s (port %d): crashed: %v", st.DeviceID, d.port, r)
		}
	}()

	lastTick := d.clock()
	for {
		select {
		case <-d.kill:
			return
		case <-d.stop:
			return
		case req := <-d.requests:
			now := d.clock()
			st.Advance(now.Sub(lastTick))
			lastTick = now
			st.Touch(now)
			d.lastActivity.Store(now.UnixNano())

			req.reply <- d.handle(req, st, sim)
		}
	}
}

func (d *Device) handle(req request, st *device.State, sim *simulate.Simulator) response {
	switch {
	case req.info:
		return response{info: Info{
			DeviceID:      st.DeviceID,
			Port:          d.port,
			DeviceType:    d.deviceType,
			UptimeSeconds: st.UptimeSeconds,
			PollCount:     d.pollCount.Load(),
			LastActivity:  st.LastActivity,
		}}
	case req.oid != "":
		datum, ok := d.set.Store.Get(req.oid)
		if !ok {
			return response{value: simulate.Value{Type: gosnmp.NoSuchObject}}
		}
		v := sim.Value(req.oid, datum, d.set.Binder.Lookup(req.oid), st)
		return response{value: v}
	default:
		d.pollCount.Add(1)
		return response{packet: d.respond(req.packet, st, sim)}
	}
}
