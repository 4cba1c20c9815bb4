package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// managePidFile writes the current PID to path. An existing file is only
// an error while the process it names is still alive.
func managePidFile(path string) error {
	if data, err := os.ReadFile(path); err == nil {
		if pid, convErr := strconv.Atoi(strings.TrimSpace(string(data))); convErr == nil && processAlive(pid) {
			return fmt.Errorf("PID file %s already exists (pid %d). Is authguard already running?", path, pid)
		}
	}
	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %v", err)
	}
	return nil
}

func removePidFile(path string, log *zap.SugaredLogger) {
	if err := os.Remove(path); err != nil {
		log.Warnf("⚠️  Failed to remove PID file: %v", err)
	}
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
