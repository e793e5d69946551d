package script

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	cerrors "github.com/cinderlang/cinder/pkg/cinder/errors"
	"github.com/cinderlang/cinder/pkg/cinder/fsutil"
)

// rawFilesystem is the filesystem type used for named raw partitions.
const rawFilesystem = "yaffs2"

// RegisterInstallFunctions installs the storage-mutation builtins into r. The
// external evaluator calls this once at engine startup.
func RegisterInstallFunctions(r *Registry) {
	r.Register("mount", mountFn)
	r.Register("unmount", unmountFn)
	r.Register("format", formatFn)
	r.Register("show_progress", showProgressFn)
	r.Register("delete", deleteFn)
	r.Register("delete_recursive", deleteFn)
	r.Register("package_extract", packageExtractFn)
	r.Register("symlink", symlinkFn)
	r.Register("set_perm", setPermFn)
	r.Register("set_perm_recursive", setPermFn)
}

// mount(type, location, mount_point)
//
//	type="MTD"   location="<partition>"           mounts a named raw partition
//	type="vfat"  location="/dev/block/<device>"   mounts a device node
//
// The mount point is created first; a pre-existing directory is fine. A
// missing partition or a failed mount syscall is an operational failure, not a
// script bug.
func mountFn(ctx *Context, name string, argv []Expr) (Result, error) {
	args, err := ReadArgs(ctx, name, argv, 3)
	if err != nil {
		return Failed(), err
	}
	typ, location, mountPoint := args[0], args[1], args[2]

	if err := nonEmpty(name, "type", typ); err != nil {
		return Failed(), err
	}
	if err := nonEmpty(name, "location", location); err != nil {
		return Failed(), err
	}
	if err := nonEmpty(name, "mount_point", mountPoint); err != nil {
		return Failed(), err
	}

	if err := os.MkdirAll(mountPoint, 0o755); err != nil {
		ctx.logf("%s: can't create %s: %v", name, mountPoint, err)
	}

	if typ == "MTD" {
		if err := ctx.Flash.Scan(); err != nil {
			ctx.logf("%s: flash partition scan failed: %v", name, err)
			return Failed(), nil
		}
		part, ok := ctx.Flash.Find(location)
		if !ok {
			ctx.logf("%s: no flash partition named %q", name, location)
			return Failed(), nil
		}
		if err := part.Mount(mountPoint, rawFilesystem); err != nil {
			ctx.logf("%s: raw mount of %s failed: %v", name, location, err)
			return Failed(), nil
		}
		return Value(mountPoint), nil
	}

	if err := ctx.Mounts.Mount(location, mountPoint, typ); err != nil {
		ctx.logf("%s: mount of %s on %s failed: %v", name, location, mountPoint, err)
		return Failed(), nil
	}
	return Value(mountPoint), nil
}

// unmount(mount_point)
//
// A mount point that is not in the mounted-volume table is an operational
// failure. An unmount syscall error on a known volume is logged but still
// counts as success, matching the engine's long-standing behavior.
func unmountFn(ctx *Context, name string, argv []Expr) (Result, error) {
	args, err := ReadArgs(ctx, name, argv, 1)
	if err != nil {
		return Failed(), err
	}
	mountPoint := args[0]

	if err := nonEmpty(name, "mount_point", mountPoint); err != nil {
		return Failed(), err
	}

	switch err := ctx.Mounts.Unmount(mountPoint); {
	case errors.Is(err, ErrNotMounted):
		ctx.logf("%s of %s failed; no such volume", name, mountPoint)
		return Failed(), nil
	case err != nil:
		ctx.logf("%s of %s: %v", name, mountPoint, err)
	}
	return Value(mountPoint), nil
}

// format(type, location)
//
// Only type="MTD" is supported: the named partition is opened for writing,
// erased over its full extent, and closed. Anything else is an unsupported
// type, reported as an operational failure.
func formatFn(ctx *Context, name string, argv []Expr) (Result, error) {
	args, err := ReadArgs(ctx, name, argv, 2)
	if err != nil {
		return Failed(), err
	}
	typ, location := args[0], args[1]

	if err := nonEmpty(name, "type", typ); err != nil {
		return Failed(), err
	}
	if err := nonEmpty(name, "location", location); err != nil {
		return Failed(), err
	}

	if typ != "MTD" {
		ctx.logf("%s: unsupported type %q", name, typ)
		return Failed(), nil
	}

	if err := ctx.Flash.Scan(); err != nil {
		ctx.logf("%s: flash partition scan failed: %v", name, err)
		return Failed(), nil
	}
	part, ok := ctx.Flash.Find(location)
	if !ok {
		ctx.logf("%s: no flash partition named %q", name, location)
		return Failed(), nil
	}
	w, err := part.OpenWrite()
	if err != nil {
		ctx.logf("%s: can't write %q: %v", name, location, err)
		return Failed(), nil
	}
	if err := w.EraseAll(); err != nil {
		w.Close()
		ctx.logf("%s: failed to erase %q: %v", name, location, err)
		return Failed(), nil
	}
	if err := w.Close(); err != nil {
		ctx.logf("%s: failed to close %q: %v", name, location, err)
		return Failed(), nil
	}
	return Value(location), nil
}

// delete(path, ...) and delete_recursive(path, ...)
//
// All paths are evaluated eagerly before any deletion happens. Per-path
// failures (missing files, non-empty directories for the plain form) are
// expected and never abort; the result is the decimal count of successful
// deletions, "0" included.
func deleteFn(ctx *Context, name string, argv []Expr) (Result, error) {
	paths, err := ReadVarArgs(ctx, argv)
	if err != nil {
		return Failed(), err
	}

	recursive := name == "delete_recursive"

	success := 0
	for _, p := range paths {
		var rmErr error
		if recursive {
			rmErr = fsutil.RemoveTree(p)
		} else {
			// Strict unlink semantics: directories are left alone.
			rmErr = unix.Unlink(p)
		}
		if rmErr == nil {
			success++
		}
	}
	return Value(strconv.Itoa(success)), nil
}

// show_progress(fraction, seconds)
//
// Progress reporting must never abort an install: malformed numbers parse as
// zero and the write is fire-and-forget.
func showProgressFn(ctx *Context, name string, argv []Expr) (Result, error) {
	args, err := ReadArgs(ctx, name, argv, 2)
	if err != nil {
		return Failed(), err
	}

	frac, _ := strconv.ParseFloat(args[0], 64)
	sec, _ := strconv.Atoi(args[1])

	if ctx.Progress != nil {
		fmt.Fprintf(ctx.Progress, "progress %f %d\n", frac, sec)
	}
	return Value(""), nil
}

// package_extract(zip_path, destination_path)
//
// Extracts the subtree rooted at zip_path inside the open install package into
// destination_path. Returns "t" on success and the failure value on any
// extraction error; it never aborts the script.
func packageExtractFn(ctx *Context, name string, argv []Expr) (Result, error) {
	args, err := ReadArgs(ctx, name, argv, 2)
	if err != nil {
		return Failed(), err
	}
	zipPath, destPath := args[0], args[1]

	if ctx.Package == nil {
		ctx.logf("%s: no install package is open", name)
		return Failed(), nil
	}
	if err := ctx.Package.ExtractSubtree(zipPath, destPath); err != nil {
		ctx.logf("%s: extraction of %q failed: %v", name, zipPath, err)
		return Failed(), nil
	}
	return Value("t"), nil
}

// symlink(target, src, ...)
//
// The target is evaluated once, then a link is created at every src pointing
// at it. A link that can't be created (the path already exists, say) is left
// as-is; per-link failures are not surfaced.
func symlinkFn(ctx *Context, name string, argv []Expr) (Result, error) {
	if len(argv) == 0 {
		return Failed(), cerrors.New("CALL-0002", map[string]any{
			"Function": name,
			"Min":      1,
			"Got":      0,
		})
	}

	target, err := argv[0].Eval(ctx)
	if err != nil {
		return Failed(), err
	}
	srcs, err := ReadVarArgs(ctx, argv[1:])
	if err != nil {
		return Failed(), err
	}

	for _, src := range srcs {
		_ = os.Symlink(target, src)
	}
	return Value(""), nil
}

// set_perm(uid, gid, mode, path, ...) and
// set_perm_recursive(uid, gid, dirmode, filemode, path, ...)
//
// The numeric fields are validated in full before any path is touched, so an
// abort leaves ownership and modes unchanged. The per-path work is
// best-effort: chown/chmod failures are not reported.
func setPermFn(ctx *Context, name string, argv []Expr) (Result, error) {
	recursive := name == "set_perm_recursive"

	minArgs := 4
	if recursive {
		minArgs = 5
	}
	if len(argv) < minArgs {
		return Failed(), cerrors.New("CALL-0002", map[string]any{
			"Function": name,
			"Min":      minArgs,
			"Got":      len(argv),
		})
	}

	args, err := ReadVarArgs(ctx, argv)
	if err != nil {
		return Failed(), err
	}

	uid, err := parseNumField(name, "uid", args[0])
	if err != nil {
		return Failed(), err
	}
	gid, err := parseNumField(name, "gid", args[1])
	if err != nil {
		return Failed(), err
	}

	if recursive {
		dirMode, err := parseNumField(name, "dirmode", args[2])
		if err != nil {
			return Failed(), err
		}
		fileMode, err := parseNumField(name, "filemode", args[3])
		if err != nil {
			return Failed(), err
		}

		for _, p := range args[4:] {
			if err := fsutil.SetTreePermissions(p, int(uid), int(gid), fs.FileMode(dirMode), fs.FileMode(fileMode)); err != nil {
				ctx.logf("%s: %s: %v", name, p, err)
			}
		}
		return Value(""), nil
	}

	mode, err := parseNumField(name, "mode", args[2])
	if err != nil {
		return Failed(), err
	}

	for _, p := range args[3:] {
		_ = os.Chown(p, int(uid), int(gid))
		_ = os.Chmod(p, fs.FileMode(mode))
	}
	return Value(""), nil
}
