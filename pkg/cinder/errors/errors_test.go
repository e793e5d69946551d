package errors

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestScriptError_String(t *testing.T) {
	tests := []struct {
		name     string
		err      *ScriptError
		expected string
	}{
		{
			name: "message only",
			err: &ScriptError{
				Message: "something went wrong",
			},
			expected: "something went wrong",
		},
		{
			name: "with hints",
			err: &ScriptError{
				Message: "mount() expects 3 args, got 2",
				Hints:   []string{"mount(type, location, mount_point)"},
			},
			expected: "mount() expects 3 args, got 2\n  mount(type, location, mount_point)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.String()
			if got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNew_CatalogRendering(t *testing.T) {
	tests := []struct {
		code     string
		data     map[string]any
		class    ErrorClass
		expected string
	}{
		{
			code:     "CALL-0001",
			data:     map[string]any{"Function": "mount", "Expected": 3, "Got": 1},
			class:    ClassArity,
			expected: "mount() expects 3 args, got 1",
		},
		{
			code:     "CALL-0002",
			data:     map[string]any{"Function": "set_perm", "Min": 4, "Got": 2},
			class:    ClassArity,
			expected: "set_perm() expects at least 4 args, got 2",
		},
		{
			code:     "CALL-0003",
			data:     map[string]any{"Function": "frobnicate"},
			class:    ClassUndefined,
			expected: "unknown function frobnicate()",
		},
		{
			code:     "ARG-0001",
			data:     map[string]any{"Function": "mount", "Param": "mount_point"},
			class:    ClassArgument,
			expected: "mount_point argument to mount() can't be empty",
		},
		{
			code:     "ARG-0002",
			data:     map[string]any{"Function": "set_perm", "Param": "mode", "Value": "abc"},
			class:    ClassArgument,
			expected: `set_perm: "abc" not a valid mode`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, tt.data)
			if err.Class != tt.class {
				t.Errorf("Class = %q, want %q", err.Class, tt.class)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
			if err.Message != tt.expected {
				t.Errorf("Message = %q, want %q", err.Message, tt.expected)
			}
		})
	}
}

func TestNew_UnknownCode(t *testing.T) {
	err := New("NOPE-9999", map[string]any{"message": "custom message"})
	if err.Message != "custom message" {
		t.Errorf("Message = %q, want %q", err.Message, "custom message")
	}
	if err.Code != "NOPE-9999" {
		t.Errorf("Code = %q, want %q", err.Code, "NOPE-9999")
	}

	// Without a message key the code itself is the message
	err = New("NOPE-9999", nil)
	if err.Message != "NOPE-9999" {
		t.Errorf("Message = %q, want %q", err.Message, "NOPE-9999")
	}
}

func TestNewSimple(t *testing.T) {
	err := NewSimple(ClassEval, "boom")
	if err.Class != ClassEval || err.Message != "boom" {
		t.Errorf("NewSimple() = %+v", err)
	}
}

func TestScriptError_ToJSON(t *testing.T) {
	err := New("CALL-0001", map[string]any{"Function": "unmount", "Expected": 1, "Got": 0})
	data, jerr := err.ToJSON()
	if jerr != nil {
		t.Fatalf("ToJSON() error: %v", jerr)
	}

	var decoded map[string]any
	if uerr := json.Unmarshal(data, &decoded); uerr != nil {
		t.Fatalf("invalid JSON: %v", uerr)
	}
	if decoded["class"] != "arity" {
		t.Errorf("class = %v, want %q", decoded["class"], "arity")
	}
	if !strings.Contains(decoded["message"].(string), "unmount()") {
		t.Errorf("message = %v, want it to name unmount()", decoded["message"])
	}
}

func TestErrorCatalog_TemplatesRender(t *testing.T) {
	// Every catalog template must render without leaving raw {{ }} behind.
	data := map[string]any{
		"Function": "f", "Expected": 1, "Got": 2, "Min": 3,
		"Param": "p", "Value": "v", "Index": 0,
	}
	for code := range ErrorCatalog {
		err := New(code, data)
		if strings.Contains(err.Message, "{{") {
			t.Errorf("%s: unrendered template: %q", code, err.Message)
		}
	}
}
