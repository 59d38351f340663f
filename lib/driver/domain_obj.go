package driver

import (
	"context"
	"sync"

	"github.com/cloudhive/chdriver/lib/chrdev"
	"github.com/cloudhive/chdriver/lib/domain"
	"github.com/cloudhive/chdriver/lib/monitor"
)

// Domain is one domain object: a definition plus the driver's runtime
// state for it. The embedded mutex is the object's lock; callers hold it
// for the duration of any read or write into the private state, including
// a whole RefreshThreadInfo call.
type Domain struct {
	mu sync.Mutex

	Def        *domain.Definition
	Persistent bool

	pid   int
	priv  *PrivateState
	vcpus []*VcpuPrivate
}

// Lock acquires the domain object's lock.
func (d *Domain) Lock() { d.mu.Lock() }

// Unlock releases the domain object's lock.
func (d *Domain) Unlock() { d.mu.Unlock() }

// PID returns the VMM process id, 0 when no process was started.
func (d *Domain) PID() int { return d.pid }

// Monitor returns the VMM monitor handle. Accessor only; never allocates.
func (d *Domain) Monitor() *monitor.Monitor {
	if d.priv == nil {
		return nil
	}
	return d.priv.monitor
}

// Chrdevs returns the domain's character-device registry.
func (d *Domain) Chrdevs() *chrdev.Registry {
	if d.priv == nil {
		return nil
	}
	return d.priv.chrdevs
}

// VcpuTID returns the OS thread id backing a declared vCPU slot, or
// TIDUnset when it is not (yet) known or the index is out of range.
func (d *Domain) VcpuTID(index int) int {
	if index < 0 || index >= len(d.vcpus) {
		return TIDUnset
	}
	return d.vcpus[index].TID
}

// HasVcpuTIDs reports whether any declared vCPU slot has a known thread.
func (d *Domain) HasVcpuTIDs() bool {
	for _, v := range d.vcpus {
		if v.TID > 0 {
			return true
		}
	}
	return false
}

// MachineName returns the domain's machine name, resolving it on first
// use. When the VMM pid is known an existing machined registration is
// looked up first; lookup errors are swallowed, and any miss falls back
// to the deterministic generated name. Best-effort: never fails.
func (d *Domain) MachineName(ctx context.Context) string {
	if d.priv == nil {
		return ""
	}
	if d.priv.machineName != "" {
		return d.priv.machineName
	}

	drv := d.priv.driver
	var name string
	if d.pid != 0 {
		if looked, err := drv.names.LookupByPID(d.pid); err == nil {
			name = looked
		}
	}
	if name == "" {
		name = drv.names.Generate(driverTag, drv.cfg.Privileged, d.Def.ID, d.Def.Name)
	}

	d.priv.machineName = name
	return name
}
