// Package domain defines the hypervisor-agnostic domain definition model
// and validates definitions against Cloud Hypervisor driver policy and
// host capabilities.
package domain

// Definition is the portable description of a virtual machine. It is owned
// by the domain-object lifecycle; this package only mutates it during
// post-parse normalization (emulator defaulting).
type Definition struct {
	ID    int
	UUID  string
	Name  string
	Title string

	OS       OSConfig
	Emulator string

	CPU      *CPUConfig
	Memory   Memtune
	MaxVcpus int

	Devices []Device
}

// OSConfig is the requested guest OS type / architecture / virtualization
// type triple, checked against the host support matrix at post-parse.
type OSConfig struct {
	Type     string // e.g. "hvm"
	Arch     string // e.g. "x86_64"
	VirtType string // e.g. "kvm"
}

// CPUMode selects how guest CPU features are derived from the host.
type CPUMode string

const (
	CPUModeHostPassthrough CPUMode = "host-passthrough"
	CPUModeHostModel       CPUMode = "host-model"
	CPUModeCustom          CPUMode = "custom"
	CPUModeMaximum         CPUMode = "maximum"
)

// CPUConfig describes the guest CPU. A nil CPUConfig on a Definition means
// no explicit mode was requested and defaults apply.
type CPUConfig struct {
	Mode     CPUMode
	Topology *CPUTopology
}

// CPUTopology defines the virtual CPU topology.
type CPUTopology struct {
	Sockets int
	Cores   int
	Threads int
}

// Memtune holds the memory tunables of a definition.
type Memtune struct {
	// InitialBytes is the memory the guest boots with.
	InitialBytes uint64

	// Hugepages lists the requested hugepage backings. Cloud Hypervisor
	// allocates memory in fixed zones, so at most one distinct size is
	// accepted.
	Hugepages []HugepageConfig

	// NoSharePages disables shared memory backing. Cloud Hypervisor
	// requires shared backing for its memory zones, so setting this is
	// rejected.
	NoSharePages bool
}

// HugepageConfig is one requested hugepage backing.
type HugepageConfig struct {
	SizeBytes uint64
}

// ChrTarget says what guest endpoint a character device backs.
type ChrTarget string

const (
	ChrTargetConsole ChrTarget = "console"
	ChrTargetSerial  ChrTarget = "serial"
)

// ChrTransport is the host-side transport of a character device.
type ChrTransport string

const (
	ChrTransportPTY  ChrTransport = "pty"
	ChrTransportUnix ChrTransport = "unix"
	ChrTransportTCP  ChrTransport = "tcp"
	ChrTransportUDP  ChrTransport = "udp"
	ChrTransportFile ChrTransport = "file"
)

// HostCapabilities is the point-in-time host capability snapshot consumed
// by validation. Implemented by capabilities.Inventory.
type HostCapabilities interface {
	// FreePages returns the currently free page count for a size. The
	// second return is false when the size is not supported at all.
	FreePages(sizeBytes uint64) (uint64, bool)

	// SupportsGuest reports whether the host can run the given OS type /
	// architecture / virtualization type triple.
	SupportsGuest(osType, arch, virtType string) bool
}
