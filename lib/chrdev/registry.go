// Package chrdev manages the character-device endpoints backing a
// domain's console and serial devices. One registry exists per domain
// object, allocated and freed with the domain's private state.
package chrdev

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/creack/pty"
	"github.com/nrednav/cuid2"
)

// ErrRegistryClosed is returned when allocating from a freed registry
var ErrRegistryClosed = errors.New("character device registry is closed")

// Endpoint is one allocated character-device endpoint. For pty endpoints
// Path is the replica side handed to the VMM configuration; for unix
// endpoints it is the socket path.
type Endpoint struct {
	ID   string
	Path string

	master  *os.File
	replica *os.File
}

// close releases the endpoint's file handles. Safe on endpoints without
// open handles (unix endpoints, where the VMM owns the socket).
func (e *Endpoint) close() {
	if e.master != nil {
		e.master.Close()
		e.master = nil
	}
	if e.replica != nil {
		e.replica.Close()
		e.replica = nil
	}
}

// Registry tracks the character-device endpoints of a single domain.
type Registry struct {
	mu        sync.Mutex
	dir       string
	endpoints map[string]*Endpoint
	closed    bool
}

// NewRegistry creates a registry rooted at dir, creating the directory.
// A directory failure fails the whole allocation.
func NewRegistry(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create chrdev directory: %w", err)
	}
	return &Registry{
		dir:       dir,
		endpoints: make(map[string]*Endpoint),
	}, nil
}

// AllocatePTY opens a new pseudo-terminal pair and registers it.
func (r *Registry) AllocatePTY() (*Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}

	master, replica, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty: %w", err)
	}

	ep := &Endpoint{
		ID:      cuid2.Generate(),
		Path:    replica.Name(),
		master:  master,
		replica: replica,
	}
	r.endpoints[ep.ID] = ep
	return ep, nil
}

// AllocateUnix reserves a unix socket path under the registry directory.
// The VMM creates and owns the socket itself.
func (r *Registry) AllocateUnix(name string) (*Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}

	ep := &Endpoint{
		ID:   cuid2.Generate(),
		Path: filepath.Join(r.dir, name+".sock"),
	}
	r.endpoints[ep.ID] = ep
	return ep, nil
}

// Lookup returns a registered endpoint by id.
func (r *Registry) Lookup(id string) (*Endpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.endpoints[id]
	return ep, ok
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.endpoints)
}

// Free releases all endpoints and marks the registry closed. Idempotent
// and safe on a nil registry.
func (r *Registry) Free() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, ep := range r.endpoints {
		ep.close()
	}
	r.endpoints = nil
	r.closed = true
}
