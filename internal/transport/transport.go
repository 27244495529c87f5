// Package transport abstracts the single UDP endpoint the resolver owns
// so the event loop never touches net.UDPConn directly. Two
// implementations exist: UDPTransport for real sockets (IPv4 or IPv6,
// unicast or multicast-joined) and a Mock used by tests.
package transport

import (
	"context"
	"net"
)

// Transport sends and receives whole DNS messages over the resolver's one
// UDP endpoint.
type Transport interface {
	// Send transmits packet to dest. dest is either the configured
	// upstream unicast server (port 53) or the mDNS multicast group
	// (port 5353), per spec §4.3.
	Send(ctx context.Context, packet []byte, dest net.Addr) error

	// Receive waits for one datagram, respecting ctx cancellation and
	// deadline. It returns the payload and the address it arrived from.
	Receive(ctx context.Context) (packet []byte, src net.Addr, err error)

	// LocalAddr returns the endpoint's bound local address.
	LocalAddr() net.Addr

	// Close releases the underlying socket.
	Close() error
}

// maxMessageSize bounds a single read: RFC 1035 messages over UDP without
// EDNS(0) (explicitly out of scope, spec §1) are capped at 512 bytes; we
// size the buffer generously above that for mDNS responses carrying a
// handful of address answers.
const maxMessageSize = 2048
