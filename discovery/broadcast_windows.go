//go:build windows
// +build windows

package discovery

import (
	"net"
	"unsafe"

	"golang.org/x/sys/windows"
)

// enableBroadcast sets SO_BROADCAST on conn on Windows, where SO_REUSEADDR
// is deliberately not set (spec §4.4 scopes that to non-Windows platforms).
func enableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		on := int32(1)
		sockErr = windows.Setsockopt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_BROADCAST,
			(*byte)(unsafe.Pointer(&on)), int32(unsafe.Sizeof(on)))
	}); err != nil {
		return err
	}
	return sockErr
}
