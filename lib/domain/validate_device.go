package domain

import (
	"fmt"

	"github.com/mdlayher/vsock"
	"github.com/samber/lo"
)

// ValidateDevice checks a single device against the Cloud Hypervisor
// allow-list. Definition-wide constraints (console/serial multiplicity and
// transport) are checked once per pass by validateChardevs, not here.
func ValidateDevice(dev Device, def *Definition) error {
	kind := dev.Kind()

	switch kind {
	case DeviceDisk, DeviceNet, DeviceMemory, DeviceVsock, DeviceController, DeviceChr:
		// supported below

	case DeviceLease, DeviceFilesystem, DeviceInput, DeviceSound, DeviceVideo,
		DeviceHostdev, DeviceWatchdog, DeviceGraphics, DeviceHub, DeviceRedirdev,
		DeviceSmartcard, DeviceMemballoon, DeviceNVRAM, DeviceRNG, DeviceShmem,
		DeviceTPM, DevicePanic, DeviceIOMMU, DeviceAudio, DeviceCrypto:
		return fmt.Errorf("%w: %q", ErrUnsupportedDeviceKind, string(kind))

	case DeviceNone:
		return fmt.Errorf("%w: unexpected empty device kind", ErrInternalInconsistency)

	default:
		if _, known := knownDeviceKinds[kind]; !known {
			return fmt.Errorf("%w: unknown device kind %q", ErrInternalInconsistency, string(kind))
		}
	}

	if vs, ok := dev.(VsockDevice); ok {
		// CIDs up to vsock.Host are reserved for the hypervisor and host.
		if vs.GuestCID <= vsock.Host {
			return fmt.Errorf("%w: vsock guest CID %d is reserved, must be greater than %d",
				ErrConfigUnsupported, vs.GuestCID, vsock.Host)
		}
	}

	return nil
}

// chrDevices returns the character devices of a definition with the given
// target, in definition order.
func chrDevices(def *Definition, target ChrTarget) []ChrDevice {
	return lo.FilterMap(def.Devices, func(dev Device, _ int) (ChrDevice, bool) {
		chr, ok := dev.(ChrDevice)
		return chr, ok && chr.Target == target
	})
}

// validateChardevs enforces the definition-wide console/serial constraints:
// at most one of each, and the configured one must use a pty or unix
// transport. Multiplicity is checked before transport.
func validateChardevs(def *Definition) error {
	consoles := chrDevices(def, ChrTargetConsole)
	serials := chrDevices(def, ChrTargetSerial)

	if len(consoles) > 1 {
		return fmt.Errorf("%w: only a single console can be configured, got %d",
			ErrConfigUnsupported, len(consoles))
	}
	if len(serials) > 1 {
		return fmt.Errorf("%w: only a single serial can be configured, got %d",
			ErrConfigUnsupported, len(serials))
	}

	if len(consoles) == 1 && !isLocalTransport(consoles[0].Transport) {
		return fmt.Errorf("%w: console works only in unix/pty modes, got %q",
			ErrUnsupportedTransport, string(consoles[0].Transport))
	}
	if len(serials) == 1 && !isLocalTransport(serials[0].Transport) {
		return fmt.Errorf("%w: serial works only in unix/pty modes, got %q",
			ErrUnsupportedTransport, string(serials[0].Transport))
	}

	return nil
}

func isLocalTransport(t ChrTransport) bool {
	return t == ChrTransportPTY || t == ChrTransportUnix
}
