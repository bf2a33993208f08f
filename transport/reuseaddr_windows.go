//go:build windows
// +build windows

package transport

import "net"

// ReuseAddrListenConfig is a plain ListenConfig on Windows: SO_REUSEADDR has
// different (unsafe) semantics there, so spec §4.4/§4.5 only ask for it on
// non-Windows platforms.
func ReuseAddrListenConfig() net.ListenConfig {
	return net.ListenConfig{}
}
