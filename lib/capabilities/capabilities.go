// Package capabilities discovers host capabilities relevant to the Cloud
// Hypervisor driver: supported page sizes with free-page counts and the
// guest OS/arch/virt-type support matrix.
package capabilities

// PageSize is one page size the host supports, with its currently free
// page count.
type PageSize struct {
	SizeBytes uint64
	Free      uint64
}

// GuestSupport is one OS type / architecture / virtualization type triple
// the host can run.
type GuestSupport struct {
	OSType   string
	Arch     string
	VirtType string
}

// Inventory is a point-in-time snapshot of host capabilities. Free-page
// counts are not stable between probes; callers needing fresh numbers
// probe again.
type Inventory struct {
	PageSizes []PageSize
	Guests    []GuestSupport
}

// FreePages returns the free page count for a size. The second return is
// false when the host does not support that page size at all.
func (inv *Inventory) FreePages(sizeBytes uint64) (uint64, bool) {
	for _, ps := range inv.PageSizes {
		if ps.SizeBytes == sizeBytes {
			return ps.Free, true
		}
	}
	return 0, false
}

// SupportsGuest reports whether the OS type / arch / virt type triple is
// in the support matrix.
func (inv *Inventory) SupportsGuest(osType, arch, virtType string) bool {
	for _, g := range inv.Guests {
		if g.OSType == osType && g.Arch == arch && g.VirtType == virtType {
			return true
		}
	}
	return false
}
