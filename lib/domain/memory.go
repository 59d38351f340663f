package domain

import (
	"fmt"

	"github.com/c2h5oh/datasize"
)

// CheckMemoryFeasible decides whether the requested memory tunables can be
// satisfied on the host described by caps. Pure function of its inputs; the
// inventory is a point-in-time snapshot and a later call may see different
// free-page counts.
func CheckMemoryFeasible(mem Memtune, caps HostCapabilities) error {
	if len(mem.Hugepages) == 0 {
		return nil
	}

	// Cloud Hypervisor expects exact memory to be allocated in the form of
	// memory zones, so only a single hugepage size is supported.
	if distinctHugepageSizes(mem.Hugepages) > 1 {
		return fmt.Errorf("%w: multiple hugepage sizes requested", ErrConfigUnsupported)
	}

	if mem.NoSharePages {
		return fmt.Errorf("%w: disabling shared memory does not work with cloud-hypervisor",
			ErrConfigUnsupported)
	}

	size := mem.Hugepages[0].SizeBytes
	free, supported := caps.FreePages(size)
	if !supported {
		return fmt.Errorf("%w: host does not support hugepage size %s",
			ErrUnsupportedHostCapability, datasize.ByteSize(size).HumanReadable())
	}

	// A partial final page still needs a whole page backing it.
	pagesNeeded := (mem.InitialBytes + size - 1) / size
	if pagesNeeded > free {
		return fmt.Errorf("%w: need %d free hugepages of size %s, host has %d",
			ErrInsufficientHostResources, pagesNeeded,
			datasize.ByteSize(size).HumanReadable(), free)
	}

	return nil
}

func distinctHugepageSizes(pages []HugepageConfig) int {
	seen := make(map[uint64]struct{}, len(pages))
	for _, p := range pages {
		seen[p.SizeBytes] = struct{}{}
	}
	return len(seen)
}
