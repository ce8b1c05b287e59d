//go:build !windows && !linux

package toolchain_test

import (
	"errors"

	"golang.org/x/sys/unix"
)

func processRunning(pid int) bool {
	return !errors.Is(unix.Kill(pid, 0), unix.ESRCH)
}
