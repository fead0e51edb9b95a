package engine

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/distribution"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/pool"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/profile"
)

func testAssignments(t *testing.T, start, end int) *distribution.PortAssignments {
	t.Helper()
	pa, err := distribution.AssignSequential([]distribution.TypeCount{
		{Type: device.CableModem, Count: end - start + 1},
	}, distribution.PortRange{Start: start, End: end})
	if err != nil {
		t.Fatalf("AssignSequential: %v", err)
	}
	return pa
}

func startListener(t *testing.T, start, end int) *Listener {
	t.Helper()
	lib, err := profile.NewLibrary()
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	p := pool.New(pool.Config{}, lib)
	l, err := NewListener("127.0.0.1", p, testAssignments(t, start, end))
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		l.Stop()
		p.ShutdownAllDevices()
	})
	return l
}

// query sends a raw datagram and waits briefly for a reply.
func query(t *testing.T, port int, packet []byte) []byte {
	t.Helper()
	conn, err := net.Dial("udp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write(packet); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return nil
	}
	return buf[:n]
}

func TestLazyDeviceOnFirstQuery(t *testing.T) {
	l := startListener(t, 41000, 41004)

	stats := l.Statistics()
	if stats["active_devices"].(int) != 0 {
		t.Fatalf("devices active before any query: %+v", stats)
	}
	if stats["active_listeners"].(int) != 5 {
		t.Fatalf("active_listeners = %v, want 5", stats["active_listeners"])
	}

	get := []byte{0x30, 0x29, 0x02, 0x01, 0x01, 0xA0, 0x1c}
	resp := query(t, 41002, get)
	if len(resp) == 0 {
		t.Fatal("no response to GET")
	}

	stats = l.Statistics()
	if stats["active_devices"].(int) != 1 {
		t.Fatalf("active_devices = %v after one query, want 1", stats["active_devices"])
	}
	if stats["devices_created"].(uint64) != 1 {
		t.Fatalf("devices_created = %v, want 1", stats["devices_created"])
	}
}

func TestRepeatQueriesReuseDevice(t *testing.T) {
	l := startListener(t, 41100, 41101)

	get := []byte{0x30, 0x29, 0x02, 0x01, 0x01, 0xA0, 0x1c}
	for i := 0; i < 5; i++ {
		if resp := query(t, 41100, get); len(resp) == 0 {
			t.Fatalf("query %d got no response", i)
		}
	}

	stats := l.Statistics()
	if stats["devices_created"].(uint64) != 1 {
		t.Fatalf("devices_created = %v after 5 queries, want 1", stats["devices_created"])
	}
}

func TestStartTwiceFails(t *testing.T) {
	l := startListener(t, 41200, 41200)
	if err := l.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}
}

func TestStopIdempotent(t *testing.T) {
	l := startListener(t, 41300, 41300)
	l.Stop()
	l.Stop()

	if l.Statistics()["running"].(bool) {
		t.Fatal("still marked running after Stop")
	}
}

func TestNewListenerValidation(t *testing.T) {
	lib, err := profile.NewLibrary()
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	p := pool.New(pool.Config{}, lib)
	if _, err := NewListener("127.0.0.1", p, nil); err == nil {
		t.Fatal("nil assignments should fail")
	}
}
