package mounts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cinderlang/cinder/pkg/cinder/script"
)

const sampleMounts = `rootfs / rootfs rw 0 0
/dev/block/mtdblock0 /system yaffs2 ro,relatime 0 0
/dev/block/mtdblock1 /data yaffs2 rw,nosuid,nodev,relatime 0 0
/dev/block/sda1 /mnt/usb\040drive vfat rw,noatime 0 0
`

func TestParseMounts(t *testing.T) {
	vols, err := parseMounts(strings.NewReader(sampleMounts))
	if err != nil {
		t.Fatalf("parseMounts: %v", err)
	}
	if len(vols) != 4 {
		t.Fatalf("parsed %d volumes, want 4", len(vols))
	}

	want := Volume{
		Device:     "/dev/block/mtdblock0",
		MountPoint: "/system",
		Filesystem: "yaffs2",
		Options:    "ro,relatime",
	}
	if vols[1] != want {
		t.Errorf("vols[1] = %+v, want %+v", vols[1], want)
	}

	// Kernel octal escapes decode in path fields.
	if vols[3].MountPoint != "/mnt/usb drive" {
		t.Errorf("MountPoint = %q, want %q", vols[3].MountPoint, "/mnt/usb drive")
	}
}

func TestParseMounts_SkipsBlankLines(t *testing.T) {
	vols, err := parseMounts(strings.NewReader("\n\nrootfs / rootfs rw 0 0\n\n"))
	if err != nil {
		t.Fatalf("parseMounts: %v", err)
	}
	if len(vols) != 1 {
		t.Errorf("parsed %d volumes, want 1", len(vols))
	}
}

func TestParseMounts_Malformed(t *testing.T) {
	_, err := parseMounts(strings.NewReader("only three fields\n"))
	if err == nil {
		t.Fatal("expected an error for a short mount entry")
	}
}

func TestUnescapeField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/plain/path", "/plain/path"},
		{`/with\040space`, "/with space"},
		{`/tab\011here`, "/tab\there"},
		{`trailing\04`, `trailing\04`}, // truncated escape passes through
		{`not\zzzoctal`, `not\zzzoctal`},
	}
	for _, tt := range tests {
		if got := unescapeField(tt.in); got != tt.want {
			t.Errorf("unescapeField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTable_RescanAndFind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mounts")
	if err := os.WriteFile(path, []byte(sampleMounts), 0o644); err != nil {
		t.Fatal(err)
	}

	table := NewTable(path)
	if err := table.Rescan(); err != nil {
		t.Fatalf("Rescan: %v", err)
	}

	vol, ok := table.Find("/data")
	if !ok {
		t.Fatal("Find(/data) = not found")
	}
	if vol.Device != "/dev/block/mtdblock1" || vol.Filesystem != "yaffs2" {
		t.Errorf("Find(/data) = %+v", vol)
	}

	if _, ok := table.Find("/cache"); ok {
		t.Error("Find(/cache) found a volume that is not mounted")
	}

	if n := len(table.Volumes()); n != 4 {
		t.Errorf("Volumes() has %d entries, want 4", n)
	}
}

func TestTable_RescanMissingFile(t *testing.T) {
	table := NewTable(filepath.Join(t.TempDir(), "nope"))
	if err := table.Rescan(); err == nil {
		t.Fatal("expected Rescan to fail on a missing mount list")
	}
}

func TestTable_UnmountUnknownMountPoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mounts")
	if err := os.WriteFile(path, []byte(sampleMounts), 0o644); err != nil {
		t.Fatal(err)
	}

	table := NewTable(path)
	err := table.Unmount("/not-mounted")
	if !errors.Is(err, script.ErrNotMounted) {
		t.Fatalf("Unmount error = %v, want script.ErrNotMounted", err)
	}
}

func TestNewTable_DefaultPath(t *testing.T) {
	table := NewTable("")
	if table.procPath != defaultProcMounts {
		t.Errorf("procPath = %q, want %q", table.procPath, defaultProcMounts)
	}
}
