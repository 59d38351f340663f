package capabilities

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

const hugepagesSysfsDir = "/sys/kernel/mm/hugepages"

// Probe takes a capability snapshot of the host: supported hugepage sizes
// with free counts from sysfs, the default page size from /proc/meminfo,
// and the guest support matrix.
func Probe(ctx context.Context) (*Inventory, error) {
	sizes, err := probePageSizes(ctx, hugepagesSysfsDir)
	if err != nil {
		return nil, err
	}

	return &Inventory{
		PageSizes: sizes,
		Guests:    guestMatrix(),
	}, nil
}

// probePageSizes scans sysfs hugepage directories ("hugepages-2048kB") and
// reads each size's free count concurrently.
func probePageSizes(ctx context.Context, dir string) ([]PageSize, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// Kernel without hugepage support still has a valid, empty
			// inventory.
			return nil, nil
		}
		return nil, fmt.Errorf("read hugepage sysfs: %w", err)
	}

	var (
		mu    sync.Mutex
		sizes []PageSize
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		sizeBytes, ok := parseHugepageDirName(entry.Name())
		if !ok {
			continue
		}
		freePath := filepath.Join(dir, entry.Name(), "free_hugepages")

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			free, err := readUint(freePath)
			if err != nil {
				return fmt.Errorf("read free pages for size %d: %w", sizeBytes, err)
			}
			mu.Lock()
			sizes = append(sizes, PageSize{SizeBytes: sizeBytes, Free: free})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(sizes, func(i, j int) bool { return sizes[i].SizeBytes < sizes[j].SizeBytes })
	return sizes, nil
}

// parseHugepageDirName extracts the page size in bytes from a sysfs
// directory name like "hugepages-2048kB".
func parseHugepageDirName(name string) (uint64, bool) {
	rest, found := strings.CutPrefix(name, "hugepages-")
	if !found {
		return 0, false
	}
	kb, found := strings.CutSuffix(rest, "kB")
	if !found {
		return 0, false
	}
	n, err := strconv.ParseUint(kb, 10, 64)
	if err != nil {
		return 0, false
	}
	return n * 1024, true
}

func readUint(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
}

// guestMatrix reports the guest triples this host can run. Cloud
// Hypervisor only runs hvm guests of the host's own architecture under
// KVM (or mshv, which this driver does not manage).
func guestMatrix() []GuestSupport {
	if _, err := os.Stat("/dev/kvm"); err != nil {
		return nil
	}
	guests := []GuestSupport{
		{OSType: "hvm", Arch: normalizeArch(runtime.GOARCH), VirtType: "kvm"},
	}
	// Accept the Go spelling too when it differs, since definitions come
	// from more than one tooling lineage.
	if normalizeArch(runtime.GOARCH) != runtime.GOARCH {
		guests = append(guests, GuestSupport{OSType: "hvm", Arch: runtime.GOARCH, VirtType: "kvm"})
	}
	return guests
}

// normalizeArch maps Go architecture names to the names definitions use.
func normalizeArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	default:
		return goarch
	}
}

// DefaultHugepageSize reads the host's default hugepage size in bytes
// from /proc/meminfo. Returns 0 when the host exposes none.
func DefaultHugepageSize() uint64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "Hugepagesize:") {
			// Format: "Hugepagesize:       2048 kB"
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				if kb, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
					return kb * 1024
				}
			}
		}
	}
	return 0
}
