package monitor

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcMonitor builds a monitor whose procfs root is a temp tree and
// whose pid is the test process itself, so the liveness probe passes.
func fakeProcMonitor(t *testing.T, threads map[int]string) *Monitor {
	t.Helper()
	procDir := t.TempDir()
	pid := os.Getpid()

	taskDir := filepath.Join(procDir, strconv.Itoa(pid), "task")
	for tid, comm := range threads {
		dir := filepath.Join(taskDir, strconv.Itoa(tid))
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "comm"), []byte(comm+"\n"), 0644))
	}

	m := New(filepath.Join(procDir, "ch.sock"), pid)
	m.procDir = procDir
	return m
}

func TestThreadInfoClassifiesThreads(t *testing.T) {
	m := fakeProcMonitor(t, map[int]string{
		1001: "vmm",
		1002: "vcpu0",
		1003: "vcpu1",
		1004: "_disk0",
		1005: "http-server",
	})

	threads, err := m.ThreadInfo(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, threads, 5)

	byTID := make(map[int]ThreadInfo)
	for _, th := range threads {
		byTID[th.TID] = th
	}

	assert.Equal(t, ThreadVMM, byTID[1001].Role)
	assert.Equal(t, ThreadVcpu, byTID[1002].Role)
	assert.Equal(t, 0, byTID[1002].VcpuIndex)
	assert.Equal(t, ThreadVcpu, byTID[1003].Role)
	assert.Equal(t, 1, byTID[1003].VcpuIndex)
	assert.Equal(t, ThreadIO, byTID[1004].Role)
	assert.Equal(t, ThreadUnknown, byTID[1005].Role)
}

func TestThreadInfoWithoutExtendedMetadata(t *testing.T) {
	m := fakeProcMonitor(t, map[int]string{
		1001: "vmm",
		1002: "vcpu0",
	})

	threads, err := m.ThreadInfo(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	for _, th := range threads {
		assert.Equal(t, ThreadUnknown, th.Role)
		assert.Empty(t, th.Name)
	}
}

func TestThreadInfoNoProcess(t *testing.T) {
	m := New("/tmp/ch.sock", 0)
	_, err := m.ThreadInfo(context.Background(), true)
	require.Error(t, err)
}

func TestClassifyThread(t *testing.T) {
	tests := []struct {
		name string
		role ThreadRole
		idx  int
	}{
		{"vcpu0", ThreadVcpu, 0},
		{"vcpu12", ThreadVcpu, 12},
		{"vcpux", ThreadUnknown, -1},
		{"vcpu-1", ThreadUnknown, -1},
		{"vmm", ThreadVMM, -1},
		{"_disk1", ThreadIO, -1},
		{"_net0", ThreadIO, -1},
		{"__iou-wrk", ThreadIO, -1},
		{"tokio-runtime", ThreadUnknown, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, idx := classifyThread(tt.name)
			assert.Equal(t, tt.role, role)
			assert.Equal(t, tt.idx, idx)
		})
	}
}
