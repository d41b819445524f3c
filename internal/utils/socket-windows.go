//go:build windows

package utils

import (
	"errors"

	"golang.org/x/sys/windows"
)

func setSocketOptions(fd uintptr) error {
	return errors.Join(
		windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_RCVBUF, receiveBufferSize),
		windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_SNDBUF, sendBufferSize),
	)
}
