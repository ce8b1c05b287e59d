//go:build windows

package toolchain

import (
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

// processTree terminates a tool and its children with taskkill /T.
// Windows has no SIGTERM, so the grace period is not used.
type processTree struct {
	mu  sync.Mutex
	pid int
}

func newProcessTree(_ time.Duration) *processTree {
	return &processTree{}
}

func (t *processTree) prepare(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
}

func (t *processTree) started(cmd *exec.Cmd) {
	t.mu.Lock()
	t.pid = cmd.Process.Pid
	t.mu.Unlock()
}

func (t *processTree) terminate() error {
	t.mu.Lock()
	pid := t.pid
	t.mu.Unlock()
	if pid <= 0 {
		return nil
	}
	//nolint:gosec // pid comes from our own child process
	return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).Run()
}

func (t *processTree) finish() {}
