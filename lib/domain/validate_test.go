package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func permissiveCaps() *fakeCaps {
	return &fakeCaps{
		pages: map[uint64]uint64{size2M: 1 << 20},
		guests: map[[3]string]bool{
			{"hvm", "x86_64", "kvm"}: true,
		},
	}
}

func validDefinition() *Definition {
	return &Definition{
		ID:       1,
		UUID:     "8f64e0ac-2d6e-4b5f-9d3d-9c0c62f97a11",
		Name:     "guest01",
		OS:       OSConfig{Type: "hvm", Arch: "x86_64", VirtType: "kvm"},
		CPU:      &CPUConfig{Mode: CPUModeHostPassthrough},
		Memory:   Memtune{InitialBytes: 2 << 30},
		MaxVcpus: 4,
		Devices: []Device{
			DiskDevice{Path: "/var/lib/guest01/disk.raw"},
			ChrDevice{Target: ChrTargetConsole, Transport: ChrTransportPTY},
		},
	}
}

func TestValidateCPUMode(t *testing.T) {
	caps := permissiveCaps()

	tests := []struct {
		name    string
		cpu     *CPUConfig
		wantErr error
	}{
		{"host-passthrough", &CPUConfig{Mode: CPUModeHostPassthrough}, nil},
		{"no explicit cpu config", nil, nil},
		{"host-model", &CPUConfig{Mode: CPUModeHostModel}, ErrConfigUnsupported},
		{"custom", &CPUConfig{Mode: CPUModeCustom}, ErrConfigUnsupported},
		{"maximum", &CPUConfig{Mode: CPUModeMaximum}, ErrConfigUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			def.CPU = tt.cpu
			err := Validate(def, caps)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestValidateRunsAllStages pins down that the CPU-mode validator and the
// memory/device validator both run from a single Validate call, in order.
func TestValidateRunsAllStages(t *testing.T) {
	caps := permissiveCaps()

	// CPU failure wins even when memory is also infeasible.
	def := validDefinition()
	def.CPU = &CPUConfig{Mode: CPUModeHostModel}
	def.Memory = Memtune{
		InitialBytes: 1 << 30,
		Hugepages:    []HugepageConfig{{SizeBytes: size1G}},
	}
	err := Validate(def, caps)
	require.ErrorIs(t, err, ErrConfigUnsupported)
	assert.Contains(t, err.Error(), "CPU mode")

	// With a valid CPU mode the memory check fires.
	def.CPU = &CPUConfig{Mode: CPUModeHostPassthrough}
	err = Validate(def, caps)
	require.ErrorIs(t, err, ErrUnsupportedHostCapability)

	// With valid CPU and memory the device policy fires.
	def.Memory = Memtune{InitialBytes: 1 << 30}
	def.Devices = append(def.Devices, RawDevice{DeviceKind: DeviceTPM})
	err = Validate(def, caps)
	require.ErrorIs(t, err, ErrUnsupportedDeviceKind)
}

func TestValidateChardevConstraintsFromFullPipeline(t *testing.T) {
	caps := permissiveCaps()
	def := validDefinition()
	def.Devices = []Device{
		ChrDevice{Target: ChrTargetConsole, Transport: ChrTransportPTY},
		ChrDevice{Target: ChrTargetConsole, Transport: ChrTransportPTY},
	}

	err := Validate(def, caps)
	require.ErrorIs(t, err, ErrConfigUnsupported)
}

func TestValidateAcceptsFullDefinition(t *testing.T) {
	def := validDefinition()
	def.Devices = []Device{
		DiskDevice{Path: "/var/lib/guest01/disk.raw"},
		NetDevice{TAPDevice: "tap0", MAC: "52:54:00:12:34:56"},
		MemoryDevice{SizeBytes: 1 << 30},
		VsockDevice{GuestCID: 5},
		ControllerDevice{Type: "pci"},
		ChrDevice{Target: ChrTargetConsole, Transport: ChrTransportPTY},
		ChrDevice{Target: ChrTargetSerial, Transport: ChrTransportUnix},
	}

	require.NoError(t, Validate(def, permissiveCaps()))
}

func TestPostParseBasic(t *testing.T) {
	t.Run("explicit emulator kept", func(t *testing.T) {
		def := validDefinition()
		def.Emulator = "/opt/ch/cloud-hypervisor"
		require.NoError(t, PostParseBasic(def))
		assert.Equal(t, "/opt/ch/cloud-hypervisor", def.Emulator)
	})

	t.Run("defaults from PATH", func(t *testing.T) {
		dir := t.TempDir()
		bin := filepath.Join(dir, "cloud-hypervisor")
		require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755))
		t.Setenv("PATH", dir)

		def := validDefinition()
		def.Emulator = ""
		require.NoError(t, PostParseBasic(def))
		assert.Equal(t, bin, def.Emulator)
	})

	t.Run("no executable on PATH", func(t *testing.T) {
		t.Setenv("PATH", t.TempDir())

		def := validDefinition()
		def.Emulator = ""
		err := PostParseBasic(def)
		require.ErrorIs(t, err, ErrConfigUnsupported)
	})
}

func TestPostParse(t *testing.T) {
	caps := permissiveCaps()

	def := validDefinition()
	require.NoError(t, PostParse(def, caps))

	def.OS = OSConfig{Type: "hvm", Arch: "riscv64", VirtType: "kvm"}
	err := PostParse(def, caps)
	require.ErrorIs(t, err, ErrConfigUnsupported)
}
