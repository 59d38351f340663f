// Package machinename resolves human-readable machine names for running
// domains: a best-effort lookup of an existing systemd-machined
// registration by pid, and a deterministic generator used as fallback.
package machinename

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNotFound is returned when no registration exists for the pid
var ErrNotFound = errors.New("no machine registered for pid")

// Service resolves machine names. Lookup errors are advisory only; callers
// fall back to Generate regardless of why the lookup yielded nothing.
type Service interface {
	// LookupByPID returns the machine name registered for a process id.
	LookupByPID(pid int) (string, error)

	// Generate builds a deterministic machine name from the driver tag,
	// its privilege level and the domain's id and name.
	Generate(driverTag string, privileged bool, id int, name string) string
}

// machinedDir is where systemd-machined publishes one state file per
// registered machine.
const machinedDir = "/run/systemd/machines"

// Machined resolves names from systemd-machined's runtime state files.
type Machined struct {
	dir string
}

// NewMachined creates a Service backed by /run/systemd/machines.
func NewMachined() *Machined {
	return &Machined{dir: machinedDir}
}

// NewMachinedAt creates a Service reading machined state from dir. An
// empty dir falls back to the default location.
func NewMachinedAt(dir string) *Machined {
	if dir == "" {
		dir = machinedDir
	}
	return &Machined{dir: dir}
}

// LookupByPID scans the machined state files for one whose LEADER matches
// the pid and returns its NAME.
func (m *Machined) LookupByPID(pid int) (string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read machined state: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, leader, err := parseMachineFile(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			continue
		}
		if leader == pid {
			if name == "" {
				name = entry.Name()
			}
			return name, nil
		}
	}
	return "", ErrNotFound
}

// parseMachineFile reads NAME and LEADER from a machined env-style state
// file.
func parseMachineFile(path string) (name string, leader int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, "NAME="); ok {
			name = v
		} else if v, ok := strings.CutPrefix(line, "LEADER="); ok {
			leader, _ = strconv.Atoi(v)
		}
	}
	return name, leader, scanner.Err()
}

// Generate builds "{tag}-{id}-{name}" (privileged) or
// "{tag}-sess-{id}-{name}" (session), with the domain name reduced to the
// machine-name charset and the whole result capped at 64 characters to
// satisfy machined's limit.
func (m *Machined) Generate(driverTag string, privileged bool, id int, name string) string {
	parts := []string{driverTag}
	if !privileged {
		parts = append(parts, "sess")
	}
	parts = append(parts, strconv.Itoa(id), escapeName(name))

	machine := strings.Join(parts, "-")
	if len(machine) > 64 {
		machine = machine[:64]
	}
	return strings.TrimRight(machine, "-")
}

// escapeName keeps [a-zA-Z0-9_.-] and squeezes everything else into
// single dashes, so the result is a valid machine name component.
func escapeName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
			b.WriteRune(r)
			lastDash = r == '-'
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
