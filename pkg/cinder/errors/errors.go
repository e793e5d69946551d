// Package errors provides structured error types for the Cinder install
// scripting language.
//
// This package defines ScriptError, the fatal-abort error type raised by
// builtin operations when a script is malformed: wrong argument counts, empty
// required arguments, unparsable numeric fields. A ScriptError halts the whole
// script; expected operational failures (a missing partition, a failed mount)
// are never represented as ScriptErrors.
package errors

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassArity     ErrorClass = "arity"     // Wrong argument count
	ClassArgument  ErrorClass = "argument"  // Bad argument value
	ClassUndefined ErrorClass = "undefined" // Unknown function
	ClassEval      ErrorClass = "eval"      // Sub-expression evaluation failure
)

// ScriptError represents a fatal script abort.
type ScriptError struct {
	Class   ErrorClass     `json:"class"`           // Error category
	Code    string         `json:"code"`            // Error code (e.g., "CALL-0001")
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	Data    map[string]any `json:"data,omitempty"`  // Template variables
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *ScriptError) String() string {
	var sb strings.Builder

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *ScriptError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Call errors (CALL-0xxx)
	// ========================================
	"CALL-0001": {
		Class:    ClassArity,
		Template: "{{.Function}}() expects {{.Expected}} args, got {{.Got}}",
	},
	"CALL-0002": {
		Class:    ClassArity,
		Template: "{{.Function}}() expects at least {{.Min}} args, got {{.Got}}",
	},
	"CALL-0003": {
		Class:    ClassUndefined,
		Template: "unknown function {{.Function}}()",
	},

	// ========================================
	// Argument errors (ARG-0xxx)
	// ========================================
	"ARG-0001": {
		Class:    ClassArgument,
		Template: "{{.Param}} argument to {{.Function}}() can't be empty",
	},
	"ARG-0002": {
		Class:    ClassArgument,
		Template: "{{.Function}}: \"{{.Value}}\" not a valid {{.Param}}",
	},

	// ========================================
	// Evaluation errors (EVAL-0xxx)
	// ========================================
	"EVAL-0001": {
		Class:    ClassEval,
		Template: "failed to evaluate argument {{.Index}} of {{.Function}}()",
	},
}

// New creates a ScriptError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *ScriptError {
	def, ok := ErrorCatalog[code]
	if !ok {
		// Unknown code - create a generic error
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &ScriptError{
			Class:   ClassEval, // Default class
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	// Render the message template
	msg := renderTemplate(def.Template, data)

	// Render hint templates
	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &ScriptError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewSimple creates a simple error without using the catalog.
// Use this for one-off errors or when migrating existing code.
func NewSimple(class ErrorClass, message string) *ScriptError {
	return &ScriptError{
		Class:   class,
		Message: message,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}
