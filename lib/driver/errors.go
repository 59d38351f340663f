package driver

import "errors"

var (
	// ErrDomainNotFound is returned when a domain lookup misses
	ErrDomainNotFound = errors.New("domain not found")

	// ErrDomainExists is returned when defining a domain whose UUID or
	// name is already taken
	ErrDomainExists = errors.New("domain already exists")

	// ErrNotRunning is returned for operations that need a live VMM
	ErrNotRunning = errors.New("domain is not running")
)
