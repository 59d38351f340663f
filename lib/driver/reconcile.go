package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudhive/chdriver/lib/logger"
	"github.com/cloudhive/chdriver/lib/monitor"
)

// RefreshThreadInfo reconciles the domain's per-vCPU thread identity from
// the live VMM thread inventory. The caller holds the domain lock for the
// whole call: the query-then-update sequence must appear atomic to other
// threads operating on the same domain.
//
// The VMM owns the vCPU-to-thread mapping; this only refreshes the
// driver's copy. Records are applied last-write-wins with no ordering
// guarantee, so duplicate indices simply overwrite. A mismatch between
// observed and declared vCPU counts is expected during startup windows
// (hotplug is unsupported) and is logged, not returned: an unrelated
// caller must not be aborted by it. Callers needing per-slot freshness
// re-read the slots after this returns.
func (drv *Driver) RefreshThreadInfo(ctx context.Context, dom *Domain) error {
	if dom.priv == nil || dom.priv.threads == nil {
		return fmt.Errorf("%w: %s", ErrNotRunning, dom.Def.Name)
	}

	start := time.Now()
	threads, err := dom.priv.threads.ThreadInfo(ctx, true)
	if err != nil {
		return fmt.Errorf("query vmm thread info: %w", err)
	}

	observed := 0
	for _, th := range threads {
		if th.Role != monitor.ThreadVcpu {
			continue
		}
		observed++
		if th.VcpuIndex >= 0 && th.VcpuIndex < len(dom.vcpus) {
			dom.vcpus[th.VcpuIndex].TID = th.TID
		}
	}

	maxVcpus := dom.Def.MaxVcpus
	if observed != maxVcpus {
		logger.FromContext(ctx).WarnContext(ctx, "vcpu count mismatch during thread refresh",
			"domain", dom.Def.Name, "expected", maxVcpus, "actual", observed)
		recordReconcileMismatch(ctx, dom.Def.Name)
	}

	recordThreadRefresh(ctx, time.Since(start))
	return nil
}
