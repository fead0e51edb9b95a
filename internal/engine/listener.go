package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/actor"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/distribution"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/pool"
)

// Listener binds one UDP socket per assigned port and feeds datagrams into
// the lazy pool. Sockets come up eagerly; device actors materialize on the
// first query to their port.
type Listener struct {
	listenAddr  string
	pool        *pool.Pool
	assignments *distribution.PortAssignments

	conns map[int]*net.UDPConn

	mu      sync.RWMutex
	wg      sync.WaitGroup
	running atomic.Bool

	packetPool *sync.Pool
}

// NewListener creates the UDP front-end for the assigned port universe.
func NewListener(listenAddr string, p *pool.Pool, pa *distribution.PortAssignments) (*Listener, error) {
	if pa == nil {
		return nil, errors.New("port assignments are required")
	}
	if err := pa.Validate(); err != nil {
		return nil, fmt.Errorf("invalid assignments: %w", err)
	}
	if err := p.ConfigurePortAssignments(pa); err != nil {
		return nil, err
	}

	return &Listener{
		listenAddr:  listenAddr,
		pool:        p,
		assignments: pa,
		conns:       make(map[int]*net.UDPConn),
		packetPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, 4096)
			},
		},
	}, nil
}

// Start binds every assigned port and begins serving.
func (l *Listener) Start(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("listener already running")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, dt := range device.AllTypes {
		for _, port := range l.assignments.Ports(dt) {
			addr := net.UDPAddr{
				Port: port,
				IP:   net.ParseIP(l.listenAddr),
			}

			conn, err := net.ListenUDP("udp", &addr)
			if err != nil {
				l.cleanup()
				l.running.Store(false)
				return fmt.Errorf("failed to listen on port %d: %w", port, err)
			}
			if err := setSocketOptions(conn); err != nil {
				conn.Close()
				l.cleanup()
				l.running.Store(false)
				return fmt.Errorf("failed to set socket options on port %d: %w", port, err)
			}

			l.conns[port] = conn
			l.wg.Add(1)
			go l.serve(ctx, conn, port)
		}
	}

	log.Printf("Started %d UDP listeners", len(l.conns))
	return nil
}

// serve reads datagrams on one port and dispatches them to its device.
func (l *Listener) serve(ctx context.Context, conn *net.UDPConn, port int) {
	defer l.wg.Done()

	buffer := l.packetPool.Get().([]byte)
	defer l.packetPool.Put(buffer)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// read deadline keeps shutdown responsive
		conn.SetReadDeadline(time.Now().Add(1 * time.Second))

		n, remoteAddr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if l.running.Load() {
				log.Printf("Error reading from port %d: %v", port, err)
			}
			continue
		}

		response := l.dispatch(port, buffer[:n])
		if response != nil {
			if _, err := conn.WriteToUDP(response, remoteAddr); err != nil {
				log.Printf("Error writing to port %d: %v", port, err)
			}
		}
	}
}

// dispatch materializes the device for port on demand and hands it the
// datagram. Unknown ports and a full pool both drop the packet, matching
// how a dark address answers a probe.
func (l *Listener) dispatch(port int, packet []byte) []byte {
	dev, err := l.pool.GetOrCreateDevice(port)
	if err != nil {
		if !errors.Is(err, pool.ErrUnknownPortRange) && !errors.Is(err, pool.ErrPoolExhausted) {
			log.Printf("Port %d: device unavailable: %v", port, err)
		}
		return nil
	}

	response, err := dev.HandleSNMP(packet)
	if err != nil {
		if errors.Is(err, actor.ErrStopped) {
			// evicted between lookup and dispatch; next probe recreates it
			return nil
		}
		log.Printf("Port %d: request failed: %v", port, err)
		return nil
	}
	return response
}

// Stop closes every socket and waits for the serve loops to drain.
func (l *Listener) Stop() {
	if !l.running.CompareAndSwap(true, false) {
		return
	}

	l.mu.Lock()
	l.cleanup()
	l.mu.Unlock()
	l.wg.Wait()

	log.Printf("All listeners stopped")
}

func (l *Listener) cleanup() {
	for port, conn := range l.conns {
		if err := conn.Close(); err != nil {
			log.Printf("Error closing listener on port %d: %v", port, err)
		}
	}
	l.conns = make(map[int]*net.UDPConn)
}

// Statistics reports listener and pool counters.
func (l *Listener) Statistics() map[string]interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := l.pool.Stats()
	return map[string]interface{}{
		"running":          l.running.Load(),
		"active_listeners": len(l.conns),
		"active_devices":   stats.ActiveCount,
		"devices_created":  stats.CreatedTotal,
		"devices_cleaned":  stats.CleanedUpTotal,
		"peak_devices":     stats.PeakCount,
	}
}

// setSocketOptions configures the UDP socket for burst traffic.
func setSocketOptions(conn *net.UDPConn) error {
	file, err := conn.File()
	if err != nil {
		return err
	}
	defer file.Close()

	fd := int(file.Fd())

	// 256KB buffers prevent packet loss when a poller sweeps the fleet
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUF, 256*1024); err != nil {
		return fmt.Errorf("failed to set SO_RCVBUF: %w", err)
	}
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_SNDBUF, 256*1024); err != nil {
		return fmt.Errorf("failed to set SO_SNDBUF: %w", err)
	}

	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, int(unix.SO_REUSEPORT), 1); err != nil {
		log.Printf("Warning: SO_REUSEPORT not available (may reduce performance): %v", err)
	}

	// file.Fd() puts the shared file description into blocking mode, which
	// disables read deadlines on conn; restore non-blocking mode.
	if err := syscall.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("failed to restore non-blocking mode: %w", err)
	}

	return nil
}
