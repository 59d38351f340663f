// Package driver ties the Cloud Hypervisor driver together: it owns the
// domain objects and their private state, gates definitions through
// validation, and reconciles per-vCPU thread identity from the live VMM.
package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudhive/chdriver/lib/capabilities"
	"github.com/cloudhive/chdriver/lib/domain"
	"github.com/cloudhive/chdriver/lib/logger"
	"github.com/cloudhive/chdriver/lib/machinename"
	"github.com/cloudhive/chdriver/lib/monitor"
	"github.com/cloudhive/chdriver/lib/paths"
)

// driverTag prefixes generated machine names.
const driverTag = "ch"

// Config is the driver-level configuration.
type Config struct {
	StateDir   string
	Privileged bool
}

// Driver is the driver context shared by all domain objects.
type Driver struct {
	cfg   Config
	paths *paths.Paths
	names machinename.Service

	capsMu sync.Mutex
	caps   *capabilities.Inventory
	// probe is swappable so tests control the capability snapshot.
	probe func(ctx context.Context) (*capabilities.Inventory, error)

	domainsMu sync.Mutex
	domains   map[string]*Domain // by UUID
}

// New creates a driver context.
func New(cfg Config, p *paths.Paths, names machinename.Service) *Driver {
	return &Driver{
		cfg:     cfg,
		paths:   p,
		names:   names,
		probe:   capabilities.Probe,
		domains: make(map[string]*Domain),
	}
}

// Capabilities returns the host capability inventory, probing on first
// use. With refresh set the snapshot is retaken; free-page counts are only
// as fresh as the last probe.
func (drv *Driver) Capabilities(ctx context.Context, refresh bool) (*capabilities.Inventory, error) {
	drv.capsMu.Lock()
	defer drv.capsMu.Unlock()

	if drv.caps == nil || refresh {
		inv, err := drv.probe(ctx)
		if err != nil {
			return nil, fmt.Errorf("probe host capabilities: %w", err)
		}
		drv.caps = inv
	}
	return drv.caps, nil
}

// PostParse runs both post-parse phases on a definition: structural
// defaults first (no host context needed), then the capability-dependent
// guest-support check.
func (drv *Driver) PostParse(ctx context.Context, def *domain.Definition) error {
	if err := domain.PostParseBasic(def); err != nil {
		return err
	}
	caps, err := drv.Capabilities(ctx, false)
	if err != nil {
		return err
	}
	return domain.PostParse(def, caps)
}

// Validate runs the full semantic validation of a definition against the
// current capability snapshot. All-or-nothing: the definition is either
// fully accepted or fully rejected.
func (drv *Driver) Validate(ctx context.Context, def *domain.Definition) error {
	caps, err := drv.Capabilities(ctx, false)
	if err != nil {
		return err
	}
	return domain.Validate(def, caps)
}

// AddDomain gates a parsed definition through post-parse and validation,
// then constructs the domain object with its private state and one vCPU
// slot per declared vCPU.
func (drv *Driver) AddDomain(ctx context.Context, def *domain.Definition, persistent bool) (*Domain, error) {
	if err := drv.PostParse(ctx, def); err != nil {
		return nil, err
	}
	if err := drv.Validate(ctx, def); err != nil {
		return nil, err
	}

	drv.domainsMu.Lock()
	defer drv.domainsMu.Unlock()

	if _, taken := drv.domains[def.UUID]; taken {
		return nil, fmt.Errorf("%w: uuid %s", ErrDomainExists, def.UUID)
	}
	for _, existing := range drv.domains {
		if existing.Def.Name == def.Name {
			return nil, fmt.Errorf("%w: name %s", ErrDomainExists, def.Name)
		}
	}

	priv, err := newPrivateState(drv, def.Name)
	if err != nil {
		return nil, err
	}

	vcpus := make([]*VcpuPrivate, def.MaxVcpus)
	for i := range vcpus {
		vcpus[i] = NewVcpuPrivate()
	}

	dom := &Domain{
		Def:        def,
		Persistent: persistent,
		priv:       priv,
		vcpus:      vcpus,
	}
	drv.domains[def.UUID] = dom

	logger.FromContext(ctx).InfoContext(ctx, "domain defined",
		"domain", def.Name, "uuid", def.UUID, "max_vcpus", def.MaxVcpus)
	return dom, nil
}

// RemoveInactive destroys an inactive domain object: frees its private
// state and, for persistent domains, drops it from the list. Transient
// domains are already delisted by the time they stop.
func (drv *Driver) RemoveInactive(ctx context.Context, dom *Domain) {
	dom.Lock()
	dom.priv.free()
	dom.priv = nil
	dom.Unlock()

	if dom.Persistent {
		drv.domainsMu.Lock()
		delete(drv.domains, dom.Def.UUID)
		drv.domainsMu.Unlock()
	}

	logger.FromContext(ctx).InfoContext(ctx, "domain removed", "domain", dom.Def.Name)
}

// ListDomains returns a snapshot of the registered domain objects.
func (drv *Driver) ListDomains() []*Domain {
	drv.domainsMu.Lock()
	defer drv.domainsMu.Unlock()

	doms := make([]*Domain, 0, len(drv.domains))
	for _, dom := range drv.domains {
		doms = append(doms, dom)
	}
	return doms
}

// LookupByUUID finds a domain object by UUID.
func (drv *Driver) LookupByUUID(uuid string) (*Domain, error) {
	drv.domainsMu.Lock()
	defer drv.domainsMu.Unlock()

	dom, ok := drv.domains[uuid]
	if !ok {
		return nil, fmt.Errorf("%w: no domain with matching uuid %q", ErrDomainNotFound, uuid)
	}
	return dom, nil
}

// LookupByName finds a domain object by name.
func (drv *Driver) LookupByName(name string) (*Domain, error) {
	drv.domainsMu.Lock()
	defer drv.domainsMu.Unlock()

	for _, dom := range drv.domains {
		if dom.Def.Name == name {
			return dom, nil
		}
	}
	return nil, fmt.Errorf("%w: no domain with matching name %q", ErrDomainNotFound, name)
}

// StartVMM launches the Cloud Hypervisor process for a domain and binds
// its monitor into the private state. Caller holds the domain lock.
func (drv *Driver) StartVMM(ctx context.Context, dom *Domain) error {
	socketPath, err := drv.paths.DomainSocket(dom.Def.Name)
	if err != nil {
		return err
	}
	logDir, err := drv.paths.DomainVMMLogDir(dom.Def.Name)
	if err != nil {
		return err
	}

	mon, err := monitor.StartProcess(ctx, dom.Def.Emulator, socketPath, logDir, nil)
	if err != nil {
		return fmt.Errorf("start vmm: %w", err)
	}

	dom.pid = mon.PID()
	dom.priv.monitor = mon
	dom.priv.threads = mon

	logger.FromContext(ctx).InfoContext(ctx, "vmm started",
		"domain", dom.Def.Name, "pid", dom.pid, "socket", socketPath)
	return nil
}
