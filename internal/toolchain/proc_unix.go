//go:build !windows

package toolchain

import (
	"errors"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// processTree terminates a tool and everything it spawned. The tool is the
// leader of its own process group, so signals sent to -pgid reach the JVM
// and any helpers it forked.
type processTree struct {
	grace time.Duration

	mu         sync.Mutex
	pgid       int
	terminated bool
	killAt     time.Time
	done       chan struct{}
}

func newProcessTree(grace time.Duration) *processTree {
	return &processTree{grace: grace, done: make(chan struct{})}
}

func (t *processTree) prepare(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func (t *processTree) started(cmd *exec.Cmd) {
	t.mu.Lock()
	t.pgid = cmd.Process.Pid
	t.mu.Unlock()
}

// terminate is installed as exec.Cmd.Cancel. It sends SIGTERM to the group
// and schedules SIGKILL after the grace period without blocking Wait.
func (t *processTree) terminate() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated || t.pgid <= 0 {
		return nil
	}
	t.terminated = true
	t.killAt = time.Now().Add(t.grace)

	pgid := t.pgid
	if err := unix.Kill(-pgid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		_ = unix.Kill(-pgid, unix.SIGKILL)
		return nil
	}

	go func() {
		timer := time.NewTimer(t.grace)
		defer timer.Stop()
		select {
		case <-timer.C:
			_ = unix.Kill(-pgid, unix.SIGKILL)
		case <-t.done:
		}
	}()
	return nil
}

// finish runs after Wait has reaped the leader. If the group was terminated
// and members remain, it waits out the grace period and kills them.
func (t *processTree) finish() {
	t.mu.Lock()
	pgid, terminated, killAt := t.pgid, t.terminated, t.killAt
	t.mu.Unlock()

	defer close(t.done)

	if !terminated || pgid <= 0 || !groupAlive(pgid) {
		return
	}
	if wait := time.Until(killAt); wait > 0 {
		time.Sleep(wait)
	}
	_ = unix.Kill(-pgid, unix.SIGKILL)
}

// groupAlive reports whether any process remains in the group.
func groupAlive(pgid int) bool {
	return unix.Kill(-pgid, 0) == nil
}
