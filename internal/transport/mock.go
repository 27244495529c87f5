package transport

import (
	"context"
	"net"
	"sync"
)

// Mock is an in-memory Transport for tests: Send appends to Sent, and
// Receive drains a queue fed by Deliver. It never touches a real socket.
type Mock struct {
	mu      sync.Mutex
	inbound []inboundPacket
	woken   chan struct{}
	closed  bool

	// Sent records every packet handed to Send, in order.
	Sent []SentPacket

	local net.Addr
}

// SentPacket is one call to Mock.Send.
type SentPacket struct {
	Packet []byte
	Dest   net.Addr
}

type inboundPacket struct {
	packet []byte
	src    net.Addr
}

// NewMock returns a Mock bound to the given local address (used only for
// LocalAddr's return value).
func NewMock(local net.Addr) *Mock {
	return &Mock{local: local, woken: make(chan struct{}, 1)}
}

// Deliver queues packet as if it arrived from src, waking a pending Receive.
func (m *Mock) Deliver(packet []byte, src net.Addr) {
	m.mu.Lock()
	m.inbound = append(m.inbound, inboundPacket{packet: packet, src: src})
	m.mu.Unlock()

	select {
	case m.woken <- struct{}{}:
	default:
	}
}

func (m *Mock) Send(ctx context.Context, packet []byte, dest net.Addr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), packet...)
	m.Sent = append(m.Sent, SentPacket{Packet: cp, Dest: dest})
	return nil
}

func (m *Mock) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	for {
		m.mu.Lock()
		if len(m.inbound) > 0 {
			next := m.inbound[0]
			m.inbound = m.inbound[1:]
			m.mu.Unlock()
			return next.packet, next.src, nil
		}
		if m.closed {
			m.mu.Unlock()
			return nil, nil, context.Canceled
		}
		m.mu.Unlock()

		select {
		case <-m.woken:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

func (m *Mock) LocalAddr() net.Addr { return m.local }

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	select {
	case m.woken <- struct{}{}:
	default:
	}
	return nil
}
