package driver

import (
	"fmt"

	"github.com/cloudhive/chdriver/lib/chrdev"
	"github.com/cloudhive/chdriver/lib/monitor"
)

// TIDUnset marks a vCPU slot whose backing thread is not yet known.
const TIDUnset = -1

// PrivateState is the driver-private side of a domain object: everything
// about a domain that is not part of the portable definition. Created
// when the domain object is created, destroyed with it, never shared.
type PrivateState struct {
	driver  *Driver
	monitor *monitor.Monitor
	threads monitor.ThreadInfoSource
	chrdevs *chrdev.Registry

	// machineName is resolved lazily by Domain.MachineName.
	machineName string
}

// newPrivateState allocates the private state for a domain, including its
// character-device registry. A registry failure fails the whole
// allocation.
func newPrivateState(drv *Driver, domainName string) (*PrivateState, error) {
	chrdevDir, err := drv.paths.DomainChrdevDir(domainName)
	if err != nil {
		return nil, fmt.Errorf("resolve chrdev directory: %w", err)
	}
	registry, err := chrdev.NewRegistry(chrdevDir)
	if err != nil {
		return nil, fmt.Errorf("allocate chrdev registry: %w", err)
	}

	return &PrivateState{
		driver:  drv,
		chrdevs: registry,
	}, nil
}

// free releases everything the private state owns. Idempotent and safe on
// a nil receiver.
func (p *PrivateState) free() {
	if p == nil {
		return
	}
	p.chrdevs.Free()
	p.chrdevs = nil
	p.monitor = nil
	p.threads = nil
	p.machineName = ""
}

// VcpuPrivate is the driver-private state of one declared vCPU slot. One
// instance exists per slot up to the definition's maximum vCPU count,
// created at domain-object construction and never resized.
type VcpuPrivate struct {
	TID int
}

// NewVcpuPrivate returns a slot with the thread id unset.
func NewVcpuPrivate() *VcpuPrivate {
	return &VcpuPrivate{TID: TIDUnset}
}
