//go:build windows

package transport

import (
	"net"
	"testing"
)

// TestSetReusePortWindows verifies setReusePort succeeds against a real
// UDP socket. Windows has no SO_REUSEPORT; setReusePort falls back to
// SO_REUSEADDR there instead.
func TestSetReusePortWindows(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer conn.Close()

	rc, err := conn.SyscallConn()
	if err != nil {
		t.Fatalf("SyscallConn: %v", err)
	}
	if err := setReusePort(rc); err != nil {
		t.Fatalf("setReusePort: %v", err)
	}
}
