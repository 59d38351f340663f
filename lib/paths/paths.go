// Package paths provides centralized path construction for the chdriver
// state directory.
package paths

import (
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// Filesystem structure:
// {stateDir}/domains/{domain-name}/
//   ch.sock            # Cloud Hypervisor API socket
//   chdriver.log       # Per-domain driver log
//   logs/
//     vmm.log          # Cloud Hypervisor process output
//   chrdev/            # Allocated character-device endpoints

// Paths provides typed path construction for the chdriver state directory.
type Paths struct {
	stateDir string
}

// New creates a new Paths instance for the given state directory.
func New(stateDir string) *Paths {
	return &Paths{stateDir: stateDir}
}

// StateDir returns the root state directory.
func (p *Paths) StateDir() string {
	return p.stateDir
}

// DomainDir returns the state directory for a domain. Domain names come
// from user-supplied definitions, so the join refuses path traversal.
func (p *Paths) DomainDir(name string) (string, error) {
	return securejoin.SecureJoin(filepath.Join(p.stateDir, "domains"), name)
}

// DomainSocket returns the Cloud Hypervisor API socket path for a domain.
// The socket name is kept short to stay within SUN_LEN limits.
func (p *Paths) DomainSocket(name string) (string, error) {
	dir, err := p.DomainDir(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ch.sock"), nil
}

// DomainLog returns the per-domain driver log path, or "" when the name
// cannot be resolved to a safe path.
func (p *Paths) DomainLog(name string) string {
	dir, err := p.DomainDir(name)
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "chdriver.log")
}

// DomainVMMLogDir returns the directory holding the VMM process log.
func (p *Paths) DomainVMMLogDir(name string) (string, error) {
	dir, err := p.DomainDir(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs"), nil
}

// DomainChrdevDir returns the directory for allocated character-device
// endpoints (unix sockets) of a domain.
func (p *Paths) DomainChrdevDir(name string) (string, error) {
	dir, err := p.DomainDir(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chrdev"), nil
}
