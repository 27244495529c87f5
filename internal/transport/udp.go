package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/kelvinlabs/resolv/internal/dnserr"
	"github.com/kelvinlabs/resolv/internal/protocol"
)

// UDPTransport is the resolver's real network endpoint. It binds one UDP
// socket per the rule in spec §6: port 5353 when the mDNS responder is
// enabled (so inbound questions reach it), an ephemeral port otherwise.
// When Config.JoinMulticast is set (the Resolver sets it when either mDNS
// client or responder behavior is enabled) it additionally joins the
// link-local multicast group on every multicast-capable interface so
// responses to its own queries are delivered back to it.
//
// This generalizes the teacher's IPv4-only multicast transport to
// whichever address family the Resolver is configured for (spec §4.1
// "Address family"), and to the ephemeral/5353 bind split the teacher's
// M1 transport didn't need (it always bound 5353).
type UDPTransport struct {
	conn   *net.UDPConn
	pc4    *ipv4.PacketConn
	pc6    *ipv6.PacketConn
	family protocol.Family
}

// Config bundles the knobs NewUDPTransport needs.
type Config struct {
	Family        protocol.Family
	BindPort      int  // 0 for an ephemeral port
	JoinMulticast bool // join the mDNS group on all usable interfaces
	ReusePort     bool // SO_REUSEPORT/SO_REUSEADDR, see udp_unix.go / udp_windows.go
}

// NewUDPTransport creates and configures the socket described by cfg.
func NewUDPTransport(cfg Config) (*UDPTransport, error) {
	network := "udp4"
	if cfg.Family == protocol.FamilyIPv6 {
		network = "udp6"
	}

	addr, err := net.ResolveUDPAddr(network, net.JoinHostPort("", strconv.Itoa(cfg.BindPort)))
	if err != nil {
		return nil, &dnserr.NetworkError{Operation: "resolve bind address", Err: err}
	}

	conn, err := net.ListenUDP(network, addr)
	if err != nil {
		return nil, &dnserr.NetworkError{Operation: "create socket", Err: err, Details: fmt.Sprintf("bind %s %s", network, addr)}
	}

	if cfg.ReusePort {
		if rc, rerr := conn.SyscallConn(); rerr == nil {
			if serr := setReusePort(rc); serr != nil {
				_ = conn.Close()
				return nil, &dnserr.NetworkError{Operation: "configure socket", Err: serr, Details: "set reuse-port option"}
			}
		}
	}

	if err := conn.SetReadBuffer(64 * 1024); err != nil {
		_ = conn.Close()
		return nil, &dnserr.NetworkError{Operation: "configure socket", Err: err, Details: "set read buffer size"}
	}

	t := &UDPTransport{conn: conn, family: cfg.Family}

	if cfg.Family == protocol.FamilyIPv6 {
		t.pc6 = ipv6.NewPacketConn(conn)
	} else {
		t.pc4 = ipv4.NewPacketConn(conn)
	}

	if cfg.JoinMulticast {
		if err := t.joinMulticastGroup(); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return t, nil
}

func (t *UDPTransport) joinMulticastGroup() error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return &dnserr.NetworkError{Operation: "join multicast group", Err: err, Details: "list interfaces"}
	}

	group := &net.UDPAddr{IP: protocol.MulticastAddrIPv4}
	if t.family == protocol.FamilyIPv6 {
		group = &net.UDPAddr{IP: protocol.MulticastAddrIPv6}
	}

	joined := 0
	for i := range ifaces {
		iface := &ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		var joinErr error
		if t.family == protocol.FamilyIPv6 {
			joinErr = t.pc6.JoinGroup(iface, group)
		} else {
			joinErr = t.pc4.JoinGroup(iface, group)
		}
		if joinErr == nil {
			joined++
		}
	}

	if joined == 0 {
		return &dnserr.NetworkError{Operation: "join multicast group", Err: fmt.Errorf("no usable multicast interface")}
	}
	return nil
}

// Send implements Transport.
func (t *UDPTransport) Send(ctx context.Context, packet []byte, dest net.Addr) error {
	select {
	case <-ctx.Done():
		return &dnserr.NetworkError{Operation: "send", Err: ctx.Err()}
	default:
	}

	n, err := t.conn.WriteTo(packet, dest)
	if err != nil {
		return &dnserr.NetworkError{Operation: "send", Err: err, Details: fmt.Sprintf("%d bytes to %s", len(packet), dest)}
	}
	if n != len(packet) {
		return &dnserr.NetworkError{Operation: "send", Err: fmt.Errorf("partial write %d/%d bytes", n, len(packet))}
	}
	return nil
}

// Receive implements Transport.
func (t *UDPTransport) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	select {
	case <-ctx.Done():
		return nil, nil, &dnserr.NetworkError{Operation: "receive", Err: ctx.Err()}
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return nil, nil, &dnserr.NetworkError{Operation: "receive", Err: err, Details: "set read deadline"}
		}
	}

	buf := make([]byte, maxMessageSize)
	n, src, err := t.conn.ReadFrom(buf)
	if err != nil {
		return nil, nil, &dnserr.NetworkError{Operation: "receive", Err: err}
	}
	return buf[:n], src, nil
}

// LocalAddr implements Transport.
func (t *UDPTransport) LocalAddr() net.Addr { return t.conn.LocalAddr() }

// Close implements Transport.
func (t *UDPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return &dnserr.NetworkError{Operation: "close", Err: err}
	}
	return nil
}
