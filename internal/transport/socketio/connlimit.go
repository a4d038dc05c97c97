package socketio

import (
	"net"
	"strings"
	"sync"
)

// ConnectionLimiter caps concurrent Socket.IO clients from remote hosts.
// Loopback clients are never counted. When a remote client exceeds the cap,
// the oldest remote client is evicted.
type ConnectionLimiter struct {
	mu          sync.Mutex
	maxExternal int
	// remote client ids, oldest first
	external []string
	// clientID -> remote address
	clients map[string]string
}

// NewConnectionLimiter creates a limiter. maxExternal <= 0 disables the cap.
func NewConnectionLimiter(maxExternal int) *ConnectionLimiter {
	return &ConnectionLimiter{
		maxExternal: maxExternal,
		clients:     make(map[string]string),
	}
}

// Admit registers a client and returns the id of the client that must be
// disconnected to make room, or "" when none.
func (cl *ConnectionLimiter) Admit(clientID, remoteAddr string) (evictedID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.clients[clientID]; exists {
		return ""
	}
	cl.clients[clientID] = remoteAddr

	if isLoopback(remoteAddr) {
		return ""
	}
	cl.external = append(cl.external, clientID)

	if cl.maxExternal <= 0 || len(cl.external) <= cl.maxExternal {
		return ""
	}
	evictedID = cl.external[0]
	cl.external = cl.external[1:]
	delete(cl.clients, evictedID)
	return evictedID
}

// Remove unregisters a client.
func (cl *ConnectionLimiter) Remove(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	addr, exists := cl.clients[clientID]
	if !exists {
		return
	}
	delete(cl.clients, clientID)
	if isLoopback(addr) {
		return
	}
	for i, id := range cl.external {
		if id == clientID {
			cl.external = append(cl.external[:i], cl.external[i+1:]...)
			break
		}
	}
}

// Len returns the number of tracked clients, loopback included.
func (cl *ConnectionLimiter) Len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.clients)
}

// isLoopback accepts bare addresses, host:port pairs and IPv4-mapped IPv6.
func isLoopback(addr string) bool {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
