package socketio

import (
	"fmt"
	"testing"
)

func TestConnectionLimiterLoopbackAlwaysAllowed(t *testing.T) {
	cl := NewConnectionLimiter(1)

	for i, addr := range []string{"127.0.0.1", "::1", "127.0.0.5:51000", "[::1]:8080", "::ffff:127.0.0.1"} {
		if evicted := cl.TryAdd(fmt.Sprintf("local-%d", i), addr); evicted != "" {
			t.Errorf("loopback %s should not evict anyone, got %s", addr, evicted)
		}
	}

	total, external := cl.Count()
	if total != 5 || external != 0 {
		t.Errorf("expected 5 local connections, got total=%d external=%d", total, external)
	}
}

func TestConnectionLimiterEvictsOldestExternal(t *testing.T) {
	cl := NewConnectionLimiter(2)

	cl.TryAdd("ext-1", "192.168.1.100:40000")
	cl.TryAdd("ext-2", "192.168.1.101:40000")
	evicted := cl.TryAdd("ext-3", "10.0.0.7")

	if evicted != "ext-1" {
		t.Errorf("expected ext-1 to be evicted, got %q", evicted)
	}
	if _, external := cl.Count(); external != 2 {
		t.Errorf("expected 2 external clients, got %d", external)
	}
}

func TestConnectionLimiterLoopbackDoesNotEvictExternal(t *testing.T) {
	cl := NewConnectionLimiter(1)

	cl.TryAdd("ext-1", "192.168.1.100")
	if evicted := cl.TryAdd("local-1", "127.0.0.1"); evicted != "" {
		t.Errorf("loopback should not evict external client, got %s", evicted)
	}
}

func TestConnectionLimiterRemoveFreesSlot(t *testing.T) {
	cl := NewConnectionLimiter(1)

	cl.TryAdd("ext-1", "192.168.1.100")
	cl.Remove("ext-1")

	if evicted := cl.TryAdd("ext-2", "192.168.1.101"); evicted != "" {
		t.Errorf("slot should be free after remove, got eviction of %s", evicted)
	}
}

func TestConnectionLimiterDuplicateAddIsNoop(t *testing.T) {
	cl := NewConnectionLimiter(1)

	cl.TryAdd("ext-1", "192.168.1.100")
	if evicted := cl.TryAdd("ext-1", "192.168.1.100"); evicted != "" {
		t.Errorf("duplicate add should not evict, got %s", evicted)
	}
	if _, external := cl.Count(); external != 1 {
		t.Errorf("expected 1 external client, got %d", external)
	}
}

func TestConnectionLimiterRemoveUnknownIsNoop(t *testing.T) {
	cl := NewConnectionLimiter(1)
	cl.Remove("ghost")

	if total, _ := cl.Count(); total != 0 {
		t.Errorf("expected no connections, got %d", total)
	}
}

func TestConnectionLimiterUnlimited(t *testing.T) {
	cl := NewConnectionLimiter(0)

	for i := 0; i < 10; i++ {
		if evicted := cl.TryAdd(fmt.Sprintf("ext-%d", i), "203.0.113.9"); evicted != "" {
			t.Fatalf("unlimited limiter evicted %s", evicted)
		}
	}
}

func TestIsLoopback(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", true},
		{"127.0.0.1:3000", true},
		{"::1", true},
		{"[::1]:3000", true},
		{"192.168.1.1", false},
		{"192.168.1.1:3000", false},
		{"not-an-ip", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isLoopback(tt.addr); got != tt.want {
			t.Errorf("isLoopback(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}
