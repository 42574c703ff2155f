// Package vm - debugger support (spec.md's ambient stack: smog's
// pkg/vm/debugger.go provides breakpoints and step mode; Orbit keeps the
// same shape and adds spew-based structured dumps of Values and heap
// objects, since Orbit's compound values are many more kinds than
// smog's plain Go interface{} payloads).
package vm

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"

	"github.com/orbitlang/orbit/pkg/bytecode"
	"github.com/orbitlang/orbit/pkg/object"
	"github.com/orbitlang/orbit/pkg/value"
)

// Debugger provides breakpoint and step-mode tracing over a VM's
// interpreter loop.
type Debugger struct {
	vm          *VM
	breakpoints map[int]bool
	stepMode    bool
	enabled     bool
}

func newDebugger(vm *VM) *Debugger {
	return &Debugger{vm: vm, breakpoints: make(map[int]bool)}
}

// Debugger returns the VM's debugger, for tests and embedders that want
// breakpoints or step tracing without building their own.
func (vm *VM) Debugger() *Debugger { return vm.debugger }

// Enable activates the debugger.
func (d *Debugger) Enable() { d.enabled = true }

// Disable deactivates the debugger.
func (d *Debugger) Disable() { d.enabled = false }

// SetStepMode enables or disables tracing of every instruction. The
// interpreter does not stop; it writes a trace line and continues.
func (d *Debugger) SetStepMode(enabled bool) { d.stepMode = enabled }

// AddBreakpoint adds a breakpoint at bytecode offset ip.
func (d *Debugger) AddBreakpoint(ip int) { d.breakpoints[ip] = true }

// RemoveBreakpoint removes a breakpoint at ip.
func (d *Debugger) RemoveBreakpoint(ip int) { delete(d.breakpoints, ip) }

// shouldPause reports whether the interpreter should trace the
// instruction at ip before executing it.
func (d *Debugger) shouldPause(ip int) bool {
	if !d.enabled {
		return false
	}
	return d.stepMode || d.breakpoints[ip]
}

// trace writes one disassembled-instruction line plus the current
// top-of-stack dump to w, used when shouldPause fires and by
// WithOutput-captured test traces.
func (d *Debugger) trace(w io.Writer, fn *object.Function, ip int) {
	width := bytecode.OperandWidth(bytecode.Opcode(fn.Code[ip]))
	instr := fn.Code[ip : ip+1+width]
	fmt.Fprintf(w, "[%s] %s", fn.Signature, bytecode.Disassemble(instr))
	if t := d.vm.task; t != nil && t.SP > 0 {
		fmt.Fprintln(w, "  top:", DumpValue(t.Top()))
	}
}

// DumpValue renders v using spew, for debug_prt and breakpoint traces —
// replacing ad hoc fmt.Sprintf recursion over compound values (maps,
// instances) with the structured dumper the rest of the retrieval pack's
// larger Go codebases already reach for.
func DumpValue(v value.Value) string {
	if !v.IsObject() {
		return v.String()
	}
	switch o := v.AsObject().(type) {
	case *object.String:
		return o.String()
	default:
		return spew.Sdump(o)
	}
}
