//go:build !unix

package transport

import (
	"errors"
	"syscall"
)

func reusePortControl(_, _ string, _ syscall.RawConn) error {
	return errors.New("reuse_port is not supported on this platform")
}
