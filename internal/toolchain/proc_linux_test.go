//go:build linux

package toolchain_test

import (
	"os"
	"strconv"
	"strings"
)

// processRunning treats zombies as exited: in containers nothing may reap
// orphans, yet a zombie holds no resources.
func processRunning(pid int) bool {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat") //nolint:gosec // procfs path
	if err != nil {
		return false
	}
	stat := string(data)
	end := strings.LastIndexByte(stat, ')')
	if end < 0 || end+2 >= len(stat) {
		return false
	}
	return stat[end+2] != 'Z'
}
