package script

import (
	"sort"

	cerrors "github.com/cinderlang/cinder/pkg/cinder/errors"
)

// BuiltinFunc is one builtin operation. The registered name is passed in so
// that implementations shared between names (delete/delete_recursive,
// set_perm/set_perm_recursive) can dispatch on it, and so abort messages can
// cite the name the script used.
type BuiltinFunc func(ctx *Context, name string, argv []Expr) (Result, error)

// Registry maps operation names to implementations. Each engine instance owns
// its own Registry, built once at startup and read-only afterwards; it is not
// safe to register concurrently with calls.
type Registry struct {
	fns map[string]BuiltinFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]BuiltinFunc)}
}

// Register binds name to fn, replacing any previous binding.
func (r *Registry) Register(name string, fn BuiltinFunc) {
	r.fns[name] = fn
}

// Lookup returns the implementation bound to name.
func (r *Registry) Lookup(name string) (BuiltinFunc, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// Names returns the registered operation names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes the builtin bound to name. An unknown name is a fatal abort.
func (r *Registry) Call(ctx *Context, name string, argv []Expr) (Result, error) {
	fn, ok := r.fns[name]
	if !ok {
		return Failed(), cerrors.New("CALL-0003", map[string]any{"Function": name})
	}
	return fn(ctx, name, argv)
}
