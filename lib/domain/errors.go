package domain

import "errors"

var (
	// ErrConfigUnsupported is returned when the requested configuration can
	// never be honored by Cloud Hypervisor, regardless of host
	ErrConfigUnsupported = errors.New("configuration not supported by cloud-hypervisor")

	// ErrUnsupportedHostCapability is returned when the host lacks a
	// capability the configuration depends on (e.g. a hugepage size)
	ErrUnsupportedHostCapability = errors.New("host does not support required capability")

	// ErrInsufficientHostResources is returned when the host supports the
	// request but currently lacks the free resources to satisfy it
	ErrInsufficientHostResources = errors.New("insufficient host resources")

	// ErrUnsupportedDeviceKind is returned for device kinds outside the
	// Cloud Hypervisor allow-list
	ErrUnsupportedDeviceKind = errors.New("device not supported by cloud-hypervisor")

	// ErrUnsupportedTransport is returned for console/serial transports
	// other than pty or unix
	ErrUnsupportedTransport = errors.New("unsupported character device transport")

	// ErrInternalInconsistency indicates an upstream contract violation
	// (e.g. an impossible device kind), not a user-correctable error
	ErrInternalInconsistency = errors.New("internal inconsistency")
)
