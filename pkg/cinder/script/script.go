// Package script implements the builtin-operation layer of the Cinder install
// scripting language.
//
// An install script is a sequence of function calls whose arguments are
// sub-expressions evaluated by an external front end. This package owns the
// builtin contract: how each operation receives evaluated arguments, how it
// reports success and failure back into the scripting engine, and how partial
// failures inside multi-argument operations are handled.
//
// Two failure channels exist and must never be confused:
//
//   - an operational failure (a missing partition, a failed mount syscall) is
//     reported as Failed(); the script keeps running and may inspect the
//     empty-string value it collapses to;
//   - a fatal abort (wrong arity, empty required argument, malformed numeric
//     field, failed sub-expression) is a non-nil *errors.ScriptError and
//     unwinds the whole script.
package script

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Expr is one argument of a builtin call: an opaque node owned by the external
// evaluator. The core only ever asks it to produce a string.
//
// A non-nil error from Eval is a fatal abort.
type Expr interface {
	Eval(ctx *Context) (string, error)
}

// Literal is a constant string expression. It is the only Expr implementation
// this package ships; embedders and the plan driver use it for pre-evaluated
// arguments.
type Literal string

// Eval returns the literal string and never fails.
func (l Literal) Eval(*Context) (string, error) { return string(l), nil }

// Logger receives engine-side diagnostics (operational failures, skipped
// steps). Script output never goes through it.
type Logger interface {
	Logf(format string, args ...any)
}

type writerLogger struct {
	w io.Writer
}

func (l *writerLogger) Logf(format string, args ...any) {
	fmt.Fprintf(l.w, format+"\n", args...)
}

// NewLogger returns a Logger that writes one line per message to w.
func NewLogger(w io.Writer) Logger {
	return &writerLogger{w: w}
}

// DefaultLogger is the stderr logger used when a Context has none.
var DefaultLogger Logger = NewLogger(os.Stderr)

// ErrNotMounted is returned by Mounter.Unmount when the mount point is not in
// the mounted-volume table.
var ErrNotMounted = errors.New("mount point not mounted")

// Mounter is the engine's mounted-volume table plus the generic mount and
// unmount syscalls.
type Mounter interface {
	// Mount mounts device on mountPoint with access-time updates, device
	// nodes and directory access-time updates disabled.
	Mount(device, mountPoint, fstype string) error

	// Unmount rescans the mounted-volume table, looks the mount point up,
	// and unmounts it. Returns ErrNotMounted when the mount point is absent.
	Unmount(mountPoint string) error
}

// FlashStore is named-partition raw storage: block devices addressed by
// partition name rather than device path.
type FlashStore interface {
	// Scan refreshes the partition table.
	Scan() error

	// Find looks a partition up by name. Only valid after a Scan.
	Find(name string) (FlashPartition, bool)
}

// FlashPartition is one named raw partition.
type FlashPartition interface {
	Mount(mountPoint, fstype string) error
	OpenWrite() (FlashWriter, error)
}

// FlashWriter is an open raw partition being rewritten.
type FlashWriter interface {
	// EraseAll erases the partition's full extent.
	EraseAll() error
	Close() error
}

// Archive is the open install package.
type Archive interface {
	// ExtractSubtree extracts the regular files under root into dest,
	// creating directories as needed.
	ExtractSubtree(root, dest string) error
}

// Context is the per-script-run engine state passed to every builtin. It is
// owned by the invoking engine for the duration of the whole script; builtins
// only read from it. A Context must not be shared across concurrent script
// runs.
type Context struct {
	// Progress is the writable command pipe to the installer UI.
	Progress io.Writer

	// Package is the currently open install archive.
	Package Archive

	// Flash is the named-partition storage collaborator.
	Flash FlashStore

	// Mounts is the mounted-volume table collaborator.
	Mounts Mounter

	// Logger receives diagnostics for operational failures.
	Logger Logger
}

func (c *Context) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Logf(format, args...)
		return
	}
	DefaultLogger.Logf(format, args...)
}
