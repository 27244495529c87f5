//go:build !windows

package transport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// setReusePort enables SO_REUSEPORT so a responder and a test harness can
// both bind :5353 on the same host.
func setReusePort(rc syscall.RawConn) error {
	var sockErr error
	err := rc.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
