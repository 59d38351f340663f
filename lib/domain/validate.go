package domain

import (
	"fmt"
	"os/exec"
)

// chCmd is the Cloud Hypervisor executable searched on PATH when a
// definition does not name an emulator.
const chCmd = "cloud-hypervisor"

// PostParseBasic fills in structural defaults that require no host
// context, so definitions can be normalized offline. Currently that is the
// emulator path.
func PostParseBasic(def *Definition) error {
	if def.Emulator == "" {
		path, err := exec.LookPath(chCmd)
		if err != nil {
			return fmt.Errorf("%w: no emulator found for cloud-hypervisor", ErrConfigUnsupported)
		}
		def.Emulator = path
	}
	return nil
}

// PostParse runs the context-aware post-parse checks: the requested OS
// type / architecture / virtualization type triple must be supported by
// the host.
func PostParse(def *Definition, caps HostCapabilities) error {
	if !caps.SupportsGuest(def.OS.Type, def.OS.Arch, def.OS.VirtType) {
		return fmt.Errorf("%w: guest %s/%s with virt type %s is not supported on this host",
			ErrConfigUnsupported, def.OS.Type, def.OS.Arch, def.OS.VirtType)
	}
	return nil
}

// Validate runs the full semantic validation of a definition as an
// explicit, ordered pipeline: CPU-mode policy, memory feasibility,
// per-device policy, then the definition-wide console/serial constraints.
// It short-circuits on the first failure; a definition either fully passes
// or is fully rejected.
func Validate(def *Definition, caps HostCapabilities) error {
	stages := []struct {
		name string
		run  func() error
	}{
		{"cpu", func() error { return validateCPUMode(def) }},
		{"memory", func() error { return CheckMemoryFeasible(def.Memory, caps) }},
		{"devices", func() error { return validateDevices(def) }},
		{"chardevs", func() error { return validateChardevs(def) }},
	}

	for _, stage := range stages {
		if err := stage.run(); err != nil {
			recordValidationFailure(stage.name, err)
			return err
		}
	}
	return nil
}

// validateCPUMode enforces that host-passthrough is the only accepted CPU
// mode. A definition without an explicit CPU configuration passes.
func validateCPUMode(def *Definition) error {
	if def.CPU != nil && def.CPU.Mode != CPUModeHostPassthrough {
		return fmt.Errorf("%w: %q is the only CPU mode supported, got %q",
			ErrConfigUnsupported, string(CPUModeHostPassthrough), string(def.CPU.Mode))
	}
	return nil
}

func validateDevices(def *Definition) error {
	for _, dev := range def.Devices {
		if err := ValidateDevice(dev, def); err != nil {
			return err
		}
	}
	return nil
}
