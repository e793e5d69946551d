// Package mtd is the named-partition raw storage collaborator: flash
// partitions addressed by name via the kernel's MTD layer rather than by
// device path.
//
// The partition table is read from /proc/mtd; the table must be scanned
// before lookups, and rescanned whenever the caller wants a fresh view.
package mtd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/cinderlang/cinder/pkg/cinder/script"
)

const defaultProcMTD = "/proc/mtd"

// Partition is one named raw partition. It implements script.FlashPartition.
type Partition struct {
	Name      string
	Index     int // N in mtdN
	Size      uint64
	EraseSize uint64
}

// BlockDevice returns the partition's block device node, used for mounting.
func (p *Partition) BlockDevice() string {
	return fmt.Sprintf("/dev/block/mtdblock%d", p.Index)
}

// CharDevice returns the partition's character device node, used for erasing
// and writing.
func (p *Partition) CharDevice() string {
	return fmt.Sprintf("/dev/mtd/mtd%d", p.Index)
}

// Mount mounts the partition's block device on mountPoint, read-write.
func (p *Partition) Mount(mountPoint, fstype string) error {
	if err := unix.Mount(p.BlockDevice(), mountPoint, fstype, 0, ""); err != nil {
		return fmt.Errorf("mtd: mount %s on %s: %w", p.Name, mountPoint, err)
	}
	return nil
}

// OpenWrite opens the partition for rewriting.
func (p *Partition) OpenWrite() (script.FlashWriter, error) {
	f, err := os.OpenFile(p.CharDevice(), os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("mtd: open %s: %w", p.Name, err)
	}
	return &WriteContext{f: f, size: p.Size, eraseSize: p.EraseSize}, nil
}

// WriteContext is an open partition being rewritten.
type WriteContext struct {
	f         *os.File
	size      uint64
	eraseSize uint64
}

// eraseInfo mirrors struct erase_info_user from <mtd/mtd-abi.h>.
type eraseInfo struct {
	start  uint32
	length uint32
}

// EraseAll erases the partition's full extent, one erase block at a time.
func (w *WriteContext) EraseAll() error {
	if w.eraseSize == 0 {
		return fmt.Errorf("mtd: zero erase size")
	}
	for off := uint64(0); off < w.size; off += w.eraseSize {
		ei := eraseInfo{start: uint32(off), length: uint32(w.eraseSize)}
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, w.f.Fd(), unix.MEMERASE, uintptr(unsafe.Pointer(&ei)))
		if errno != 0 {
			return fmt.Errorf("mtd: erase at %#x: %w", off, errno)
		}
	}
	return nil
}

// Close closes the partition device.
func (w *WriteContext) Close() error {
	return w.f.Close()
}

// Store is the partition table. It implements script.FlashStore.
type Store struct {
	procPath string
	parts    []*Partition
}

// NewStore returns a Store backed by procPath, or the kernel default when
// procPath is empty.
func NewStore(procPath string) *Store {
	if procPath == "" {
		procPath = defaultProcMTD
	}
	return &Store{procPath: procPath}
}

// Scan reloads the partition table.
func (s *Store) Scan() error {
	f, err := os.Open(s.procPath)
	if err != nil {
		return fmt.Errorf("mtd: %w", err)
	}
	defer f.Close()

	parts, err := parsePartitions(f)
	if err != nil {
		return fmt.Errorf("mtd: %w", err)
	}
	s.parts = parts
	return nil
}

// Find looks a partition up by name. Only valid after a Scan.
func (s *Store) Find(name string) (script.FlashPartition, bool) {
	for _, p := range s.parts {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Partitions returns the table contents from the last Scan.
func (s *Store) Partitions() []*Partition {
	return s.parts
}

// parsePartitions reads the /proc/mtd format:
//
//	dev:    size   erasesize  name
//	mtd0: 00040000 00020000 "bootloader"
func parsePartitions(r io.Reader) ([]*Partition, error) {
	var parts []*Partition

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "dev:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("malformed partition entry %q", line)
		}

		dev := strings.TrimSuffix(fields[0], ":")
		index, err := strconv.Atoi(strings.TrimPrefix(dev, "mtd"))
		if err != nil || !strings.HasPrefix(dev, "mtd") {
			return nil, fmt.Errorf("malformed partition device %q", fields[0])
		}
		size, err := strconv.ParseUint(fields[1], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed partition size %q", fields[1])
		}
		eraseSize, err := strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed erase size %q", fields[2])
		}
		name := strings.Trim(strings.Join(fields[3:], " "), `"`)

		parts = append(parts, &Partition{
			Name:      name,
			Index:     index,
			Size:      size,
			EraseSize: eraseSize,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return parts, nil
}
