package socketio

import (
	"net"
	"net/netip"
	"slices"
	"sync"
)

// ConnectionLimiter caps the number of concurrent external (non-loopback)
// dashboard clients. Loopback clients are always allowed. When a new external
// client exceeds the limit, the oldest external client is evicted. A limit of
// zero or less disables the cap.
type ConnectionLimiter struct {
	mu          sync.Mutex
	maxExternal int
	// ordered slice of external client IDs (oldest first)
	externalClients []string
	// all tracked connections: clientID -> remote address
	connections map[string]string
}

// NewConnectionLimiter creates a limiter that allows up to maxExternal concurrent
// external connections.
func NewConnectionLimiter(maxExternal int) *ConnectionLimiter {
	return &ConnectionLimiter{
		maxExternal: maxExternal,
		connections: make(map[string]string),
	}
}

// TryAdd registers a new connection and returns the ID of the client it
// evicted, or "" if none. remoteAddr may carry a port.
func (cl *ConnectionLimiter) TryAdd(clientID, remoteAddr string) (evictedID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.connections[clientID]; exists {
		return ""
	}

	cl.connections[clientID] = remoteAddr
	if isLoopback(remoteAddr) {
		return ""
	}

	cl.externalClients = append(cl.externalClients, clientID)
	if cl.maxExternal <= 0 || len(cl.externalClients) <= cl.maxExternal {
		return ""
	}

	evictedID = cl.externalClients[0]
	cl.externalClients = cl.externalClients[1:]
	delete(cl.connections, evictedID)
	return evictedID
}

// Remove unregisters a connection when a client disconnects.
func (cl *ConnectionLimiter) Remove(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	addr, exists := cl.connections[clientID]
	if !exists {
		return
	}
	delete(cl.connections, clientID)

	if !isLoopback(addr) {
		cl.externalClients = slices.DeleteFunc(cl.externalClients, func(id string) bool {
			return id == clientID
		})
	}
}

// Count returns the number of tracked connections and how many are external.
func (cl *ConnectionLimiter) Count() (total, external int) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.connections), len(cl.externalClients)
}

// isLoopback reports whether addr, with or without a port, is a loopback
// address. Unparseable addresses count as external.
func isLoopback(addr string) bool {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	return ip.Unmap().IsLoopback()
}
