// Package mounts maintains the engine's view of currently mounted filesystems
// and wraps the generic mount and unmount syscalls.
//
// The table is refreshed from the kernel's mount list (/proc/self/mounts by
// default) on every Rescan; lookups are only as fresh as the last Rescan.
package mounts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/cinderlang/cinder/pkg/cinder/script"
)

const defaultProcMounts = "/proc/self/mounts"

// mountFlags are applied to every generic mount: no access-time updates, no
// device nodes, no directory access-time updates.
const mountFlags = unix.MS_NOATIME | unix.MS_NODEV | unix.MS_NODIRATIME

// Volume is one row of the mounted-volume table.
type Volume struct {
	Device     string
	MountPoint string
	Filesystem string
	Options    string
}

// Table is the mounted-volume table. It implements script.Mounter.
type Table struct {
	procPath string
	volumes  []Volume
}

// NewTable returns a Table backed by procPath, or the kernel default when
// procPath is empty.
func NewTable(procPath string) *Table {
	if procPath == "" {
		procPath = defaultProcMounts
	}
	return &Table{procPath: procPath}
}

// Rescan reloads the table from the kernel mount list.
func (t *Table) Rescan() error {
	f, err := os.Open(t.procPath)
	if err != nil {
		return fmt.Errorf("mounts: %w", err)
	}
	defer f.Close()

	vols, err := parseMounts(f)
	if err != nil {
		return fmt.Errorf("mounts: %w", err)
	}
	t.volumes = vols
	return nil
}

// Find returns the volume mounted at mountPoint, from the last Rescan.
func (t *Table) Find(mountPoint string) (*Volume, bool) {
	for i := range t.volumes {
		if t.volumes[i].MountPoint == mountPoint {
			return &t.volumes[i], true
		}
	}
	return nil, false
}

// Volumes returns the table contents from the last Rescan.
func (t *Table) Volumes() []Volume {
	return t.volumes
}

// Mount mounts device on mountPoint with the engine's standard flags.
func (t *Table) Mount(device, mountPoint, fstype string) error {
	if err := unix.Mount(device, mountPoint, fstype, mountFlags, ""); err != nil {
		return fmt.Errorf("mounts: mount %s on %s: %w", device, mountPoint, err)
	}
	return nil
}

// Unmount rescans the table, looks mountPoint up, and unmounts it. A mount
// point that is not in the table yields script.ErrNotMounted.
func (t *Table) Unmount(mountPoint string) error {
	if err := t.Rescan(); err != nil {
		return err
	}
	if _, ok := t.Find(mountPoint); !ok {
		return script.ErrNotMounted
	}
	if err := unix.Unmount(mountPoint, 0); err != nil {
		return fmt.Errorf("mounts: unmount %s: %w", mountPoint, err)
	}
	return nil
}

// parseMounts reads the kernel's mount-list format: one volume per line,
// whitespace-separated fields, octal escapes for whitespace in paths.
func parseMounts(r io.Reader) ([]Volume, error) {
	var vols []Volume

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("malformed mount entry %q", line)
		}
		vols = append(vols, Volume{
			Device:     unescapeField(fields[0]),
			MountPoint: unescapeField(fields[1]),
			Filesystem: fields[2],
			Options:    fields[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vols, nil
}

// unescapeField decodes the \ooo octal escapes the kernel uses for spaces,
// tabs and newlines in device and mount-point paths.
func unescapeField(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if n, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				sb.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
