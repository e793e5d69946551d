package script

// Result is the outcome of a builtin operation.
//
// The scripting value-space only has strings, and by convention the empty
// string means "the operation ran but failed at the OS layer". Inside the
// engine the two meanings are kept apart: Value("") is a real empty payload,
// Failed() is an operational failure. ScriptValue collapses them at the single
// boundary that feeds values back to the script.
type Result struct {
	value string
	ok    bool
}

// Value returns a successful Result carrying the operation's output string.
func Value(s string) Result {
	return Result{value: s, ok: true}
}

// Failed returns an operational-failure Result. The script may continue and
// inspect the empty value this collapses to.
func Failed() Result {
	return Result{}
}

// OK reports whether the operation semantically succeeded.
func (r Result) OK() bool { return r.ok }

// ScriptValue collapses the Result into the scripting value-space: the payload
// on success, the distinguished empty string on operational failure.
func (r Result) ScriptValue() string {
	if r.ok {
		return r.value
	}
	return ""
}

// String renders the Result for diagnostics.
func (r Result) String() string {
	if r.ok {
		return "Value(" + r.value + ")"
	}
	return "Failed"
}
