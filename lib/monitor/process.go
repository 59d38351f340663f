package monitor

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

// StartProcess starts a Cloud Hypervisor VMM process using the
// definition's emulator binary and returns a monitor bound to it. The
// process is daemonized and survives the caller.
func StartProcess(ctx context.Context, emulator, socketPath, logDir string, extraArgs []string) (*Monitor, error) {
	if isSocketInUse(socketPath) {
		return nil, fmt.Errorf("socket already in use, VMM may be running at %s", socketPath)
	}

	// Remove stale socket if it exists. Ignore error: if it cannot be
	// removed, cloud-hypervisor fails with a clearer one.
	os.Remove(socketPath)

	args := []string{"--api-socket", socketPath}
	args = append(args, extraArgs...)

	// Command, not CommandContext, so the process survives parent context
	// cancellation.
	cmd := exec.Command(emulator, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // new process group
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	vmmLogFile, err := os.OpenFile(
		filepath.Join(logDir, "vmm.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0644,
	)
	if err != nil {
		return nil, fmt.Errorf("create vmm log: %w", err)
	}
	// Closes the parent's descriptor after Start; the child keeps its
	// duplicated one and continues writing.
	defer vmmLogFile.Close()

	cmd.Stdout = vmmLogFile
	cmd.Stderr = vmmLogFile

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start cloud-hypervisor: %w", err)
	}
	pid := cmd.Process.Pid

	// Fresh timeout, not the parent context: startup must not be cut
	// short by an unrelated cancellation after the fork already happened.
	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := waitForSocket(waitCtx, socketPath); err != nil {
		return nil, err
	}

	return New(socketPath, pid), nil
}

// isSocketInUse checks if a unix socket is actively being listened on.
func isSocketInUse(socketPath string) bool {
	conn, err := net.DialTimeout("unix", socketPath, 100*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func waitForSocket(ctx context.Context, path string) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for socket %s", path)
		case <-ticker.C:
			if conn, err := net.Dial("unix", path); err == nil {
				conn.Close()
				return nil
			}
		}
	}
}
