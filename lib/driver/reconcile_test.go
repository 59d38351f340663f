package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudhive/chdriver/lib/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeThreadSource implements monitor.ThreadInfoSource for testing
type fakeThreadSource struct {
	threads []monitor.ThreadInfo
	err     error
	calls   int
}

func (f *fakeThreadSource) ThreadInfo(ctx context.Context, extended bool) ([]monitor.ThreadInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.threads, nil
}

func reconcilableDomain(t *testing.T, src *fakeThreadSource) *Domain {
	t.Helper()
	drv, _ := newTestDriver(t, nil)
	dom, err := drv.AddDomain(context.Background(), testDefinition("uuid-1", "guest01"), true)
	require.NoError(t, err)
	dom.priv.threads = src
	return dom
}

func vcpuThread(index, tid int) monitor.ThreadInfo {
	return monitor.ThreadInfo{TID: tid, Role: monitor.ThreadVcpu, VcpuIndex: index}
}

func TestRefreshThreadInfoUpdatesAllSlots(t *testing.T) {
	src := &fakeThreadSource{threads: []monitor.ThreadInfo{
		{TID: 1000, Role: monitor.ThreadVMM, VcpuIndex: -1},
		vcpuThread(0, 1001),
		vcpuThread(1, 1002),
		vcpuThread(2, 1003),
		vcpuThread(3, 1004),
		{TID: 1010, Role: monitor.ThreadIO, VcpuIndex: -1},
	}}
	dom := reconcilableDomain(t, src)

	dom.Lock()
	defer dom.Unlock()
	require.NoError(t, dom.priv.driver.RefreshThreadInfo(context.Background(), dom))

	assert.Equal(t, 1001, dom.VcpuTID(0))
	assert.Equal(t, 1002, dom.VcpuTID(1))
	assert.Equal(t, 1003, dom.VcpuTID(2))
	assert.Equal(t, 1004, dom.VcpuTID(3))
	assert.True(t, dom.HasVcpuTIDs())
}

func TestRefreshThreadInfoPartialInventory(t *testing.T) {
	// Only 2 of 4 declared slots appear as vCPU threads: the operation
	// still succeeds, matched slots update, the rest stay unset.
	src := &fakeThreadSource{threads: []monitor.ThreadInfo{
		vcpuThread(0, 1001),
		vcpuThread(1, 1002),
	}}
	dom := reconcilableDomain(t, src)

	dom.Lock()
	defer dom.Unlock()
	require.NoError(t, dom.priv.driver.RefreshThreadInfo(context.Background(), dom))

	assert.Equal(t, 1001, dom.VcpuTID(0))
	assert.Equal(t, 1002, dom.VcpuTID(1))
	assert.Equal(t, TIDUnset, dom.VcpuTID(2))
	assert.Equal(t, TIDUnset, dom.VcpuTID(3))
}

func TestRefreshThreadInfoIdempotent(t *testing.T) {
	src := &fakeThreadSource{threads: []monitor.ThreadInfo{
		vcpuThread(0, 1001),
		vcpuThread(1, 1002),
		vcpuThread(2, 1003),
		vcpuThread(3, 1004),
	}}
	dom := reconcilableDomain(t, src)

	dom.Lock()
	defer dom.Unlock()
	ctx := context.Background()
	require.NoError(t, dom.priv.driver.RefreshThreadInfo(ctx, dom))

	before := []int{dom.VcpuTID(0), dom.VcpuTID(1), dom.VcpuTID(2), dom.VcpuTID(3)}
	require.NoError(t, dom.priv.driver.RefreshThreadInfo(ctx, dom))
	after := []int{dom.VcpuTID(0), dom.VcpuTID(1), dom.VcpuTID(2), dom.VcpuTID(3)}

	assert.Equal(t, before, after)
	assert.Equal(t, 2, src.calls)
}

func TestRefreshThreadInfoDuplicateIndexOverwrites(t *testing.T) {
	src := &fakeThreadSource{threads: []monitor.ThreadInfo{
		vcpuThread(0, 1001),
		vcpuThread(0, 2001), // same index again: last write wins
	}}
	dom := reconcilableDomain(t, src)

	dom.Lock()
	defer dom.Unlock()
	require.NoError(t, dom.priv.driver.RefreshThreadInfo(context.Background(), dom))

	assert.Equal(t, 2001, dom.VcpuTID(0))
}

func TestRefreshThreadInfoOutOfRangeIndexIgnored(t *testing.T) {
	src := &fakeThreadSource{threads: []monitor.ThreadInfo{
		vcpuThread(0, 1001),
		vcpuThread(7, 9999), // beyond the 4 declared slots
	}}
	dom := reconcilableDomain(t, src)

	dom.Lock()
	defer dom.Unlock()
	require.NoError(t, dom.priv.driver.RefreshThreadInfo(context.Background(), dom))

	assert.Equal(t, 1001, dom.VcpuTID(0))
	for i := 1; i < 4; i++ {
		assert.Equal(t, TIDUnset, dom.VcpuTID(i))
	}
}

func TestRefreshThreadInfoTransportErrorPropagates(t *testing.T) {
	src := &fakeThreadSource{err: errors.New("socket gone")}
	dom := reconcilableDomain(t, src)

	dom.Lock()
	defer dom.Unlock()
	err := dom.priv.driver.RefreshThreadInfo(context.Background(), dom)
	require.Error(t, err)

	// no partial update happened
	assert.False(t, dom.HasVcpuTIDs())
}

func TestRefreshThreadInfoNotRunning(t *testing.T) {
	drv, _ := newTestDriver(t, nil)
	dom, err := drv.AddDomain(context.Background(), testDefinition("uuid-1", "guest01"), true)
	require.NoError(t, err)

	dom.Lock()
	defer dom.Unlock()
	err = drv.RefreshThreadInfo(context.Background(), dom)
	require.ErrorIs(t, err, ErrNotRunning)
}
