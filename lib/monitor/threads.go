package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ThreadRole classifies a VMM thread.
type ThreadRole string

const (
	// ThreadVcpu is a thread executing one virtual CPU
	ThreadVcpu ThreadRole = "vcpu"
	// ThreadVMM is the main VMM control thread
	ThreadVMM ThreadRole = "vmm"
	// ThreadIO is a virtio backend worker
	ThreadIO ThreadRole = "io"
	// ThreadUnknown is anything the classifier cannot place
	ThreadUnknown ThreadRole = "unknown"
)

// ThreadInfo is one thread of the running VMM process. It is transient:
// produced by a single inventory query, consumed, and discarded. For
// ThreadVcpu records VcpuIndex carries the virtual CPU this thread backs.
type ThreadInfo struct {
	TID       int
	Role      ThreadRole
	Name      string
	VcpuIndex int
}

// ThreadInfoSource yields the current thread inventory of a VMM process.
// The driver consumes this interface so tests can inject inventories.
type ThreadInfoSource interface {
	// ThreadInfo returns the live thread inventory. With extended set the
	// records carry the metadata (thread names) needed to classify them;
	// without it every record is ThreadUnknown.
	ThreadInfo(ctx context.Context, extended bool) ([]ThreadInfo, error)
}

var _ ThreadInfoSource = (*Monitor)(nil)

// ThreadInfo reads the thread inventory of the VMM process from procfs.
// Cloud Hypervisor names its vCPU threads "vcpuN"; that naming is the
// classification key.
func (m *Monitor) ThreadInfo(ctx context.Context, extended bool) ([]ThreadInfo, error) {
	if m.pid <= 0 {
		return nil, fmt.Errorf("no vmm process to introspect")
	}
	// A dead process would otherwise read as an empty task dir.
	if err := unix.Kill(m.pid, 0); err != nil {
		return nil, fmt.Errorf("vmm process %d not running: %w", m.pid, err)
	}

	taskDir := filepath.Join(m.procDir, strconv.Itoa(m.pid), "task")
	entries, err := os.ReadDir(taskDir)
	if err != nil {
		return nil, fmt.Errorf("read vmm task dir: %w", err)
	}

	threads := make([]ThreadInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		info := ThreadInfo{TID: tid, Role: ThreadUnknown, VcpuIndex: -1}
		if extended {
			// Threads may exit between ReadDir and here; skip the ones
			// that did.
			name, err := readComm(filepath.Join(taskDir, entry.Name(), "comm"))
			if err != nil {
				continue
			}
			info.Name = name
			info.Role, info.VcpuIndex = classifyThread(name)
		}
		threads = append(threads, info)
	}
	return threads, nil
}

func readComm(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// classifyThread maps a Cloud Hypervisor thread name to its role.
func classifyThread(name string) (ThreadRole, int) {
	if idx, ok := strings.CutPrefix(name, "vcpu"); ok {
		if n, err := strconv.Atoi(idx); err == nil && n >= 0 {
			return ThreadVcpu, n
		}
	}
	switch {
	case name == "vmm":
		return ThreadVMM, -1
	case strings.HasPrefix(name, "_disk"),
		strings.HasPrefix(name, "_net"),
		strings.HasPrefix(name, "_rng"),
		strings.HasPrefix(name, "_vsock"),
		strings.HasPrefix(name, "__iou"):
		return ThreadIO, -1
	default:
		return ThreadUnknown, -1
	}
}
