package script

import (
	"reflect"
	"testing"

	cerrors "github.com/cinderlang/cinder/pkg/cinder/errors"
)

func TestRegistry_InstallFunctions(t *testing.T) {
	r := NewRegistry()
	RegisterInstallFunctions(r)

	want := []string{
		"delete",
		"delete_recursive",
		"format",
		"mount",
		"package_extract",
		"set_perm",
		"set_perm_recursive",
		"show_progress",
		"symlink",
		"unmount",
	}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistry_Call(t *testing.T) {
	r := NewRegistry()
	var calledAs string
	r.Register("noop", func(ctx *Context, name string, argv []Expr) (Result, error) {
		calledAs = name
		return Value("ok"), nil
	})

	res, err := r.Call(testContext(), "noop", nil)
	if err != nil {
		t.Fatalf("Call() error: %v", err)
	}
	if res.ScriptValue() != "ok" {
		t.Errorf("result = %v, want Value(ok)", res)
	}
	if calledAs != "noop" {
		t.Errorf("builtin saw name %q, want noop", calledAs)
	}
}

func TestRegistry_UnknownFunction(t *testing.T) {
	r := NewRegistry()

	_, err := r.Call(testContext(), "frobnicate", nil)
	serr := scriptErr(t, err)
	if serr.Code != "CALL-0003" {
		t.Errorf("Code = %q, want CALL-0003", serr.Code)
	}
	if serr.Class != cerrors.ClassUndefined {
		t.Errorf("Class = %q, want %q", serr.Class, cerrors.ClassUndefined)
	}
	if serr.Message != "unknown function frobnicate()" {
		t.Errorf("Message = %q", serr.Message)
	}
}

func TestRegistry_SharedImplementationDispatchesOnName(t *testing.T) {
	r := NewRegistry()
	RegisterInstallFunctions(r)

	plain, _ := r.Lookup("delete")
	recursive, _ := r.Lookup("delete_recursive")
	if plain == nil || recursive == nil {
		t.Fatal("delete variants not registered")
	}

	// Same implementation either way; behavior switches on the call name,
	// which TestDeleteRecursive exercises.
	if reflect.ValueOf(plain).Pointer() != reflect.ValueOf(recursive).Pointer() {
		t.Error("delete and delete_recursive are not the same implementation")
	}
}
