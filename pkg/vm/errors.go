// Package vm - error handling with stack traces (spec.md §7).
package vm

import (
	"fmt"
	"strings"
)

// StackFrame captures where execution was when a RuntimeError was
// raised: the function's signature and the instruction pointer.
type StackFrame struct {
	Signature string
	IP        int
}

// RuntimeError is returned for spec.md §7's "dispatch errors": entry
// point not found, called Value is not a function, class Value is not a
// class. Error formats Message and, when StackTrace is non-empty, the
// frames multi-line the way smog's RuntimeError does. The errors the
// interpreter and Invoke return set only Message; StackTrace is left
// empty.
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.StackTrace) > 0 {
		b.WriteString("\n\nStack trace:")
		for i := len(e.StackTrace) - 1; i >= 0; i-- {
			f := e.StackTrace[i]
			fmt.Fprintf(&b, "\n  at %s [ip %d]", f.Signature, f.IP)
		}
	}
	return b.String()
}

// FatalError represents spec.md §7's "stack discipline errors" and
// "allocation failure": type mismatch on arithmetic opcodes, index out
// of range, stack underflow, pin-stack overflow. These are, per the
// spec, "treated as fatal in the core" with no structured recovery — the
// interpreter panics with a *FatalError and cmd/orbit is the only layer
// that recovers it, turning it into a process exit code.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string { return "orbit: fatal: " + e.Message }

func fatalf(format string, args ...interface{}) {
	panic(&FatalError{Message: fmt.Sprintf(format, args...)})
}
