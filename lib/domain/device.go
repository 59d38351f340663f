package domain

// DeviceKind tags the members of the Device union. The set mirrors the
// full device enumeration of the definition schema; only a small subset
// is accepted for Cloud Hypervisor (see ValidateDevice).
type DeviceKind string

const (
	DeviceNone       DeviceKind = ""
	DeviceDisk       DeviceKind = "disk"
	DeviceNet        DeviceKind = "interface"
	DeviceMemory     DeviceKind = "memory"
	DeviceVsock      DeviceKind = "vsock"
	DeviceController DeviceKind = "controller"
	DeviceChr        DeviceKind = "chr"

	DeviceLease      DeviceKind = "lease"
	DeviceFilesystem DeviceKind = "filesystem"
	DeviceInput      DeviceKind = "input"
	DeviceSound      DeviceKind = "sound"
	DeviceVideo      DeviceKind = "video"
	DeviceHostdev    DeviceKind = "hostdev"
	DeviceWatchdog   DeviceKind = "watchdog"
	DeviceGraphics   DeviceKind = "graphics"
	DeviceHub        DeviceKind = "hub"
	DeviceRedirdev   DeviceKind = "redirdev"
	DeviceSmartcard  DeviceKind = "smartcard"
	DeviceMemballoon DeviceKind = "memballoon"
	DeviceNVRAM      DeviceKind = "nvram"
	DeviceRNG        DeviceKind = "rng"
	DeviceShmem      DeviceKind = "shmem"
	DeviceTPM        DeviceKind = "tpm"
	DevicePanic      DeviceKind = "panic"
	DeviceIOMMU      DeviceKind = "iommu"
	DeviceAudio      DeviceKind = "audio"
	DeviceCrypto     DeviceKind = "crypto"
)

// knownDeviceKinds is the full enumeration. A kind outside this set is an
// upstream programming error, not a user-correctable configuration.
var knownDeviceKinds = map[DeviceKind]struct{}{
	DeviceDisk: {}, DeviceNet: {}, DeviceMemory: {}, DeviceVsock: {},
	DeviceController: {}, DeviceChr: {}, DeviceLease: {}, DeviceFilesystem: {},
	DeviceInput: {}, DeviceSound: {}, DeviceVideo: {}, DeviceHostdev: {},
	DeviceWatchdog: {}, DeviceGraphics: {}, DeviceHub: {}, DeviceRedirdev: {},
	DeviceSmartcard: {}, DeviceMemballoon: {}, DeviceNVRAM: {}, DeviceRNG: {},
	DeviceShmem: {}, DeviceTPM: {}, DevicePanic: {}, DeviceIOMMU: {},
	DeviceAudio: {}, DeviceCrypto: {},
}

// Device is the kind-tagged union over all device configurations a
// definition may carry.
type Device interface {
	Kind() DeviceKind
}

// DiskDevice is a block device attached to the guest.
type DiskDevice struct {
	Path     string
	Readonly bool
}

func (DiskDevice) Kind() DeviceKind { return DeviceDisk }

// NetDevice is a guest network interface.
type NetDevice struct {
	TAPDevice string
	MAC       string
}

func (NetDevice) Kind() DeviceKind { return DeviceNet }

// MemoryDevice is an additional memory module.
type MemoryDevice struct {
	SizeBytes uint64
}

func (MemoryDevice) Kind() DeviceKind { return DeviceMemory }

// VsockDevice is a virtio-vsock channel between host and guest.
type VsockDevice struct {
	GuestCID uint32
	Path     string
}

func (VsockDevice) Kind() DeviceKind { return DeviceVsock }

// ControllerDevice is a bus controller (pci, usb, ...).
type ControllerDevice struct {
	Type string
}

func (ControllerDevice) Kind() DeviceKind { return DeviceController }

// ChrDevice is a character device backing a console or serial endpoint.
type ChrDevice struct {
	Target    ChrTarget
	Transport ChrTransport
	Path      string
}

func (ChrDevice) Kind() DeviceKind { return DeviceChr }

// RawDevice carries a bare kind tag for device classes this driver never
// inspects beyond their kind (the rejected enumeration, and anything an
// upstream parser hands through untyped).
type RawDevice struct {
	DeviceKind DeviceKind
}

func (d RawDevice) Kind() DeviceKind { return d.DeviceKind }
