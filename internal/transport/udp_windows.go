//go:build windows

package transport

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// setReusePort falls back to SO_REUSEADDR on Windows, which has no
// SO_REUSEPORT.
func setReusePort(rc syscall.RawConn) error {
	var sockErr error
	err := rc.Control(func(fd uintptr) {
		sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
