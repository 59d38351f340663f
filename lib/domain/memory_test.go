package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCaps implements HostCapabilities for testing
type fakeCaps struct {
	pages  map[uint64]uint64 // size -> free count
	guests map[[3]string]bool
}

func (f *fakeCaps) FreePages(size uint64) (uint64, bool) {
	free, ok := f.pages[size]
	return free, ok
}

func (f *fakeCaps) SupportsGuest(osType, arch, virtType string) bool {
	return f.guests[[3]string{osType, arch, virtType}]
}

const (
	size2M = uint64(2097152)
	size1G = uint64(1073741824)
)

func TestCheckMemoryFeasible(t *testing.T) {
	caps := &fakeCaps{pages: map[uint64]uint64{size2M: 100}}

	tests := []struct {
		name    string
		mem     Memtune
		wantErr error
	}{
		{
			name:    "no hugepages requested",
			mem:     Memtune{InitialBytes: 1 << 30},
			wantErr: nil,
		},
		{
			name: "two distinct hugepage sizes",
			mem: Memtune{
				InitialBytes: 1 << 30,
				Hugepages:    []HugepageConfig{{SizeBytes: size2M}, {SizeBytes: size1G}},
			},
			wantErr: ErrConfigUnsupported,
		},
		{
			name: "same size listed twice counts as one",
			mem: Memtune{
				InitialBytes: size2M * 10,
				Hugepages:    []HugepageConfig{{SizeBytes: size2M}, {SizeBytes: size2M}},
			},
			wantErr: nil,
		},
		{
			name: "shared memory disabled",
			mem: Memtune{
				InitialBytes: size2M * 10,
				Hugepages:    []HugepageConfig{{SizeBytes: size2M}},
				NoSharePages: true,
			},
			wantErr: ErrConfigUnsupported,
		},
		{
			name: "hugepage size absent from inventory",
			mem: Memtune{
				InitialBytes: size1G,
				Hugepages:    []HugepageConfig{{SizeBytes: size1G}},
			},
			wantErr: ErrUnsupportedHostCapability,
		},
		{
			name: "pages needed equals free count",
			mem: Memtune{
				InitialBytes: 209715200, // exactly 100 pages
				Hugepages:    []HugepageConfig{{SizeBytes: size2M}},
			},
			wantErr: nil,
		},
		{
			name: "pages needed exceeds free count",
			mem: Memtune{
				InitialBytes: 209920000, // 101 pages
				Hugepages:    []HugepageConfig{{SizeBytes: size2M}},
			},
			wantErr: ErrInsufficientHostResources,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMemoryFeasible(tt.mem, caps)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCheckMemoryFeasibleMultipleSizesIgnoresInventory(t *testing.T) {
	// Two distinct sizes fail before the inventory is ever consulted, even
	// on a host that supports both with plenty free.
	caps := &fakeCaps{pages: map[uint64]uint64{size2M: 1 << 20, size1G: 1 << 20}}

	err := CheckMemoryFeasible(Memtune{
		InitialBytes: size2M,
		Hugepages:    []HugepageConfig{{SizeBytes: size2M}, {SizeBytes: size1G}},
	}, caps)

	require.ErrorIs(t, err, ErrConfigUnsupported)
}
