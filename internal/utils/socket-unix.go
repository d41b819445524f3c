//go:build linux || darwin

package utils

import (
	"errors"

	"golang.org/x/sys/unix"
)

// setSocketOptions widens the kernel buffers of a download socket.
func setSocketOptions(fd uintptr) error {
	return errors.Join(
		unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, receiveBufferSize),
		unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, sendBufferSize),
	)
}
